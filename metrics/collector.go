package metrics

import (
	"github.com/opd-ai/rist"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rist"

// ReceiverSource is implemented by rist.Receiver and rist.AsyncReceiver.
type ReceiverSource interface {
	RawStats() (rist.ReceiverStats, bool)
}

// SenderSource is implemented by rist.Sender and rist.AsyncSender.
type SenderSource interface {
	RawStats() (rist.SenderStats, bool)
}

type metric struct {
	desc  *prometheus.Desc
	vtype prometheus.ValueType
}

func newMetric(subsystem, name, help string, vtype prometheus.ValueType, labels prometheus.Labels) metric {
	return metric{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, name),
			help, nil, labels,
		),
		vtype: vtype,
	}
}

// ReceiverCollector reports a receiver's flow statistics.
type ReceiverCollector struct {
	src ReceiverSource

	peers, bandwidth, retryBandwidth, sent, received metric
	missing, reordered, recovered, lost, quality, rtt metric
}

var _ prometheus.Collector = (*ReceiverCollector)(nil)

// NewReceiverCollector returns a collector for src. labels are attached to
// every metric as constant labels.
func NewReceiverCollector(src ReceiverSource, labels prometheus.Labels) *ReceiverCollector {
	const sub = "receiver"
	return &ReceiverCollector{
		src:            src,
		peers:          newMetric(sub, "peers", "Number of peers feeding the flow.", prometheus.GaugeValue, labels),
		bandwidth:      newMetric(sub, "bandwidth_bps", "Flow bandwidth in bits per second.", prometheus.GaugeValue, labels),
		retryBandwidth: newMetric(sub, "retry_bandwidth_bps", "Retransmission bandwidth in bits per second.", prometheus.GaugeValue, labels),
		sent:           newMetric(sub, "nacks_sent", "Retransmission requests sent.", prometheus.GaugeValue, labels),
		received:       newMetric(sub, "packets_received", "Packets received.", prometheus.GaugeValue, labels),
		missing:        newMetric(sub, "packets_missing", "Packets detected missing.", prometheus.GaugeValue, labels),
		reordered:      newMetric(sub, "packets_reordered", "Packets received out of order.", prometheus.GaugeValue, labels),
		recovered:      newMetric(sub, "packets_recovered", "Packets recovered by retransmission.", prometheus.GaugeValue, labels),
		lost:           newMetric(sub, "packets_lost", "Packets lost after recovery.", prometheus.GaugeValue, labels),
		quality:        newMetric(sub, "quality_percent", "Flow quality from 0 to 100.", prometheus.GaugeValue, labels),
		rtt:            newMetric(sub, "rtt_ms", "Round-trip time in milliseconds.", prometheus.GaugeValue, labels),
	}
}

func (c *ReceiverCollector) all() []metric {
	return []metric{
		c.peers, c.bandwidth, c.retryBandwidth, c.sent, c.received,
		c.missing, c.reordered, c.recovered, c.lost, c.quality, c.rtt,
	}
}

// Describe implements prometheus.Collector.
func (c *ReceiverCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.all() {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *ReceiverCollector) Collect(ch chan<- prometheus.Metric) {
	st, ok := c.src.RawStats()
	if !ok {
		return
	}
	values := []float64{
		float64(st.PeerCount), float64(st.Bandwidth), float64(st.RetryBandwidth),
		float64(st.Sent), float64(st.Received), float64(st.Missing),
		float64(st.Reordered), float64(st.Recovered), float64(st.Lost),
		st.Quality, float64(st.RTT),
	}
	for i, m := range c.all() {
		ch <- prometheus.MustNewConstMetric(m.desc, m.vtype, values[i])
	}
}

// SenderCollector reports a sender's peer statistics.
type SenderCollector struct {
	src SenderSource

	bandwidth, retryBandwidth, sent, received, retransmitted, quality, rtt metric
}

var _ prometheus.Collector = (*SenderCollector)(nil)

// NewSenderCollector returns a collector for src.
func NewSenderCollector(src SenderSource, labels prometheus.Labels) *SenderCollector {
	const sub = "sender"
	return &SenderCollector{
		src:            src,
		bandwidth:      newMetric(sub, "bandwidth_bps", "Peer bandwidth in bits per second.", prometheus.GaugeValue, labels),
		retryBandwidth: newMetric(sub, "retry_bandwidth_bps", "Retransmission bandwidth in bits per second.", prometheus.GaugeValue, labels),
		sent:           newMetric(sub, "packets_sent", "Packets sent.", prometheus.GaugeValue, labels),
		received:       newMetric(sub, "packets_received", "Control packets received.", prometheus.GaugeValue, labels),
		retransmitted:  newMetric(sub, "packets_retransmitted", "Packets retransmitted.", prometheus.GaugeValue, labels),
		quality:        newMetric(sub, "quality_percent", "Peer quality from 0 to 100.", prometheus.GaugeValue, labels),
		rtt:            newMetric(sub, "rtt_ms", "Round-trip time in milliseconds.", prometheus.GaugeValue, labels),
	}
}

func (c *SenderCollector) all() []metric {
	return []metric{c.bandwidth, c.retryBandwidth, c.sent, c.received, c.retransmitted, c.quality, c.rtt}
}

// Describe implements prometheus.Collector.
func (c *SenderCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.all() {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (c *SenderCollector) Collect(ch chan<- prometheus.Metric) {
	st, ok := c.src.RawStats()
	if !ok {
		return
	}
	values := []float64{
		float64(st.Bandwidth), float64(st.RetryBandwidth), float64(st.Sent),
		float64(st.Received), float64(st.Retransmitted), st.Quality, float64(st.RTT),
	}
	for i, m := range c.all() {
		ch <- prometheus.MustNewConstMetric(m.desc, m.vtype, values[i])
	}
}
