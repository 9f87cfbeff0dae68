package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/rist"
	"github.com/opd-ai/rist/metrics"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// tsPacketSize is the MPEG-TS packet length; seven fill a RIST payload.
const tsPacketSize = 188

type sendParams struct {
	addrs  []string
	input  io.Reader // nil generates null packets
	count  int       // zero sends until input ends or ctx is done
	rate   int       // blocks per second
	size   int
	flowID uint32
}

var (
	sendCount  int
	sendRate   int
	sendSize   int
	sendInput  string
	sendFlowID uint32
)

var sendCmd = &cobra.Command{
	Use:   "send ADDRESS...",
	Short: "Transmit a stream to one or more peers",
	Example: `  ristcat send rist://127.0.0.1:5000
  ristcat send --input movie.ts --rate 800 "rist://10.0.0.2:5000?cname=cam1"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sendSize <= 0 || sendRate <= 0 {
			return fmt.Errorf("size and rate must be positive")
		}
		p := sendParams{
			addrs:  args,
			count:  sendCount,
			rate:   sendRate,
			size:   sendSize,
			flowID: sendFlowID,
		}
		switch sendInput {
		case "":
		case "-":
			p.input = cmd.InOrStdin()
		default:
			f, err := os.Open(sendInput)
			if err != nil {
				return err
			}
			defer f.Close()
			p.input = f
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return send(ctx, env, cmd.ErrOrStderr(), p)
	},
}

// senderSession is the part of Sender and AsyncSender the command uses.
type senderSession interface {
	metrics.SenderSource
	io.Closer
}

// send transmits blocks at p.rate until the input ends, p.count blocks
// are sent or ctx is done.
func send(ctx context.Context, e *runEnv, statsOut io.Writer, p sendParams) error {
	sess, write, err := openSender(ctx, e, p)
	if err != nil {
		return err
	}
	defer sess.Close()

	stats := func() (any, bool) { return sess.RawStats() }
	collector := metrics.NewSenderCollector(sess, nil)
	return runSession(ctx, e, statsOut, stats, collector, func(ctx context.Context) error {
		return pump(ctx, p, write)
	})
}

func openSender(ctx context.Context, e *runEnv, p sendParams) (senderSession, func(context.Context, []byte) (int, error), error) {
	cfg := *e.config
	cfg.FlowID = p.flowID

	if e.async {
		if len(p.addrs) != 1 {
			return nil, nil, fmt.Errorf("--async takes exactly one address")
		}
		s, err := rist.ConnectWithConfig(ctx, e.profile, p.addrs[0], e.options.Sender, &cfg)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Send, nil
	}

	s, err := rist.NewSenderWithConfig(e.profile, &cfg)
	if err != nil {
		return nil, nil, err
	}
	for _, addr := range p.addrs {
		if err := s.AddPeerWithOptions(addr, e.options.Sender); err != nil {
			s.Close()
			return nil, nil, err
		}
	}
	if err := s.Start(); err != nil {
		s.Close()
		return nil, nil, err
	}
	write := func(_ context.Context, b []byte) (int, error) { return s.Send(b) }
	return s, write, nil
}

// pump paces blocks from p.input, or null packets, into write.
func pump(ctx context.Context, p sendParams, write func(context.Context, []byte) (int, error)) error {
	ticker := time.NewTicker(time.Second / time.Duration(p.rate))
	defer ticker.Stop()

	buf := make([]byte, p.size)
	if p.input == nil {
		fillNullPackets(buf)
	}

	sent := 0
loop:
	for p.count == 0 || sent < p.count {
		n := len(buf)
		last := false
		if p.input != nil {
			var err error
			n, err = io.ReadFull(p.input, buf)
			switch {
			case errors.Is(err, io.EOF):
				break loop
			case errors.Is(err, io.ErrUnexpectedEOF):
				last = true
			case err != nil:
				return err
			}
		}

		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}
		if _, err := write(ctx, buf[:n]); err != nil {
			return err
		}
		sent++
		if last {
			break loop
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "pump",
		"blocks":   sent,
	}).Info("Send complete")
	return nil
}

// fillNullPackets fills buf with MPEG-TS null packets (PID 0x1FFF).
func fillNullPackets(buf []byte) {
	for i := range buf {
		switch i % tsPacketSize {
		case 0:
			buf[i] = 0x47
		case 1:
			buf[i] = 0x1F
		case 2:
			buf[i] = 0xFF
		case 3:
			buf[i] = 0x10
		default:
			buf[i] = 0xFF
		}
	}
}

func init() {
	sendCmd.Flags().IntVarP(&sendCount, "count", "n", 0, "number of blocks to send (0 means unlimited)")
	sendCmd.Flags().IntVar(&sendRate, "rate", 100, "blocks per second")
	sendCmd.Flags().IntVar(&sendSize, "size", 7*tsPacketSize, "block size in bytes")
	sendCmd.Flags().StringVarP(&sendInput, "input", "i", "", `file to send, "-" for stdin (default: generated null packets)`)
	sendCmd.Flags().Uint32Var(&sendFlowID, "flow-id", 0, "flow id (0 lets the engine choose)")
	rootCmd.AddCommand(sendCmd)
}
