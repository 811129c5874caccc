package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/HerbHall/runstats/internal/probe"
	"github.com/HerbHall/runstats/pkg/runstats"
)

type pingOptions struct {
	count    int
	rounds   int
	interval time.Duration
	timeout  time.Duration
	decay    float64
}

// runPing samples ICMP round-trip times to one host and prints running
// statistics after every round.
func runPing(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("ping", flag.ContinueOnError)
	fs.SetOutput(w)
	var opts pingOptions
	fs.IntVar(&opts.count, "count", 5, "echo requests per round")
	fs.IntVar(&opts.rounds, "rounds", 1, "number of rounds")
	fs.DurationVar(&opts.interval, "interval", time.Second, "pause between rounds")
	fs.DurationVar(&opts.timeout, "timeout", 5*time.Second, "timeout per round")
	fs.Float64Var(&opts.decay, "decay", 0.9, "exponential decay rate in [0, 1]")
	privileged := fs.Bool("privileged", false, "use raw ICMP sockets")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("exactly one host is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return ping(ctx, w, probe.NewICMPPinger(*privileged), fs.Arg(0), opts)
}

func ping(ctx context.Context, w io.Writer, pinger probe.Pinger, host string, opts pingOptions) error {
	if opts.count <= 0 || opts.rounds <= 0 {
		return errors.New("count and rounds must be positive")
	}
	rtt := runstats.NewStatistics()
	ewma, err := runstats.NewExponentialStatistics(opts.decay)
	if err != nil {
		return err
	}
	loss := runstats.NewStatistics()

	for round := 1; round <= opts.rounds; round++ {
		if round > 1 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(opts.interval):
			}
		}

		rtts, err := pinger.Ping(ctx, host, opts.count, opts.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		for _, d := range rtts {
			ms := probe.Millis(d)
			rtt.Push(ms)
			ewma.Push(ms)
		}
		loss.Push(probe.LossRatio(len(rtts), opts.count))

		_, err = fmt.Fprintf(w,
			"%s round %d: %d/%d replies, rtt min/avg/max/stddev = %.3f/%.3f/%.3f/%.3f ms, ewma %.3f ms, loss %.1f%%\n",
			host, round, len(rtts), opts.count,
			rtt.Minimum(), rtt.Mean(), rtt.Maximum(), rtt.StdDev(1),
			ewma.Mean(), 100*loss.Mean(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
