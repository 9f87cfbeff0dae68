package cmd

import (
	"context"
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

// pollInterval bounds each engine wait so cancellation and idle checks
// stay responsive.
const pollInterval = 100 * time.Millisecond

type recvParams struct {
	addrs  []string
	output io.Writer
	count  int           // zero receives until ctx is done
	idle   time.Duration // zero waits forever
}

var (
	recvCount  int
	recvOutput string
	recvIdle   time.Duration
)

var recvCmd = &cobra.Command{
	Use:   "recv ADDRESS...",
	Short: "Receive a stream and write it out",
	Example: `  ristcat recv rist://@:5000 -o capture.ts
  ristcat recv --async rist://@:5000 | ffplay -`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := recvParams{
			addrs:  args,
			output: io.Discard,
			count:  recvCount,
			idle:   recvIdle,
		}
		switch recvOutput {
		case "":
		case "-":
			p.output = cmd.OutOrStdout()
		default:
			f, err := os.Create(recvOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			p.output = f
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return receive(ctx, env, cmd.ErrOrStderr(), p)
	},
}

// receiverSession is the part of Receiver and AsyncReceiver the command
// uses.
type receiverSession interface {
	metrics.ReceiverSource
	io.Closer
}

// receive writes arriving payloads to p.output until p.count blocks have
// arrived, the flow has been idle for p.idle or ctx is done.
func receive(ctx context.Context, e *runEnv, statsOut io.Writer, p recvParams) error {
	sess, next, err := openReceiver(ctx, e, p)
	if err != nil {
		return err
	}
	defer sess.Close()

	stats := func() (any, bool) { return sess.RawStats() }
	collector := metrics.NewReceiverCollector(sess, nil)
	return runSession(ctx, e, statsOut, stats, collector, func(ctx context.Context) error {
		if ar, ok := sess.(*rist.AsyncReceiver); ok && p.count == 0 && p.idle == 0 {
			return copyStream(ctx, ar, p.output)
		}
		return drain(ctx, p, next)
	})
}

// nextFunc returns the next block, or nil when none arrived within one
// poll interval.
type nextFunc func(ctx context.Context) (*rist.DataBlock, error)

func openReceiver(ctx context.Context, e *runEnv, p recvParams) (receiverSession, nextFunc, error) {
	if e.async {
		if len(p.addrs) != 1 {
			return nil, nil, fmt.Errorf("--async takes exactly one address")
		}
		r, err := rist.BindWithConfig(ctx, e.profile, p.addrs[0], e.options.Receiver, e.config)
		if err != nil {
			return nil, nil, err
		}
		next := func(ctx context.Context) (*rist.DataBlock, error) {
			pctx, cancel := context.WithTimeout(ctx, pollInterval)
			defer cancel()
			blk, err := r.Recv(pctx)
			if err != nil && ctx.Err() != nil {
				return nil, nil
			}
			return blk, err
		}
		return r, next, nil
	}

	r, err := rist.NewReceiverWithConfig(e.profile, e.config)
	if err != nil {
		return nil, nil, err
	}
	for _, addr := range p.addrs {
		if err := r.AddPeerWithOptions(addr, e.options.Receiver); err != nil {
			r.Close()
			return nil, nil, err
		}
	}
	if err := r.Start(); err != nil {
		r.Close()
		return nil, nil, err
	}
	next := func(context.Context) (*rist.DataBlock, error) {
		return r.Read(pollInterval)
	}
	return r, next, nil
}

func drain(ctx context.Context, p recvParams, next nextFunc) error {
	received := 0
	lastData := time.Now()
	for p.count == 0 || received < p.count {
		if ctx.Err() != nil {
			break
		}
		blk, err := next(ctx)
		if err != nil {
			return err
		}
		if blk == nil {
			if p.idle > 0 && time.Since(lastData) >= p.idle {
				logrus.WithFields(logrus.Fields{
					"function": "drain",
					"idle":     p.idle.String(),
				}).Info("Flow idle, stopping")
				break
			}
			continue
		}

		lastData = time.Now()
		_, err = p.output.Write(blk.Payload())
		blk.Release()
		if err != nil {
			return err
		}
		received++
	}

	logrus.WithFields(logrus.Fields{
		"function": "drain",
		"blocks":   received,
	}).Info("Receive complete")
	return nil
}

// copyStream treats the receiver as a byte stream until ctx is done.
// Closing the receiver ends the copy with io.EOF.
func copyStream(ctx context.Context, r *rist.AsyncReceiver, w io.Writer) error {
	stop := context.AfterFunc(ctx, func() { r.Close() })
	defer stop()

	n, err := io.Copy(w, r)
	logrus.WithFields(logrus.Fields{
		"function": "copyStream",
		"bytes":    n,
	}).Info("Receive complete")
	return err
}

func init() {
	recvCmd.Flags().IntVarP(&recvCount, "count", "n", 0, "stop after this many blocks (0 means unlimited)")
	recvCmd.Flags().StringVarP(&recvOutput, "output", "o", "", `output file, "-" for stdout (default: discard)`)
	recvCmd.Flags().DurationVar(&recvIdle, "idle-timeout", 0, "stop after the flow has been idle this long (0 waits forever)")
	rootCmd.AddCommand(recvCmd)
}
