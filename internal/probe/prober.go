// Package probe samples ICMP round-trip times and feeds them into series.
package probe

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/HerbHall/runstats/internal/series"
	"go.uber.org/zap"
)

// Sink receives probe samples.
type Sink interface {
	Create(ctx context.Context, spec series.Spec) (series.Summary, error)
	Push(ctx context.Context, name string, samples ...[]float64) (series.Summary, error)
}

// Prober periodically pings every configured target. For each target it
// keeps two exponential series: round-trip time in milliseconds and the
// fraction of packets lost per round.
type Prober struct {
	cfg    Config
	pinger Pinger
	sink   Sink
	logger *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProber creates a Prober.
func NewProber(cfg Config, pinger Pinger, sink Sink, logger *zap.Logger) *Prober {
	return &Prober{cfg: cfg, pinger: pinger, sink: sink, logger: logger}
}

// RTTSeries is the series name holding RTT samples for host.
func RTTSeries(host string) string {
	return "probe:" + sanitize(host) + ":rtt_ms"
}

// LossSeries is the series name holding packet loss ratios for host.
func LossSeries(host string) string {
	return "probe:" + sanitize(host) + ":loss"
}

// sanitize maps characters outside the series name alphabet to '_'.
func sanitize(host string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_', r == ':':
			return r
		default:
			return '_'
		}
	}, host)
}

// Start creates the target series and launches the probe loop. It is a
// no-op when no targets are configured.
func (p *Prober) Start(ctx context.Context) error {
	if len(p.cfg.Targets) == 0 {
		return nil
	}
	for _, host := range p.cfg.Targets {
		for _, name := range []string{RTTSeries(host), LossSeries(host)} {
			_, err := p.sink.Create(ctx, series.Spec{
				Name:  name,
				Kind:  series.KindExponential,
				Decay: p.cfg.Decay,
			})
			if err != nil && !errors.Is(err, series.ErrExists) {
				return err
			}
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.RunOnce(runCtx)
		ticker := time.NewTicker(p.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				p.RunOnce(runCtx)
			}
		}
	}()
	p.logger.Info("probe started",
		zap.Strings("targets", p.cfg.Targets),
		zap.Duration("interval", p.cfg.Interval),
	)
	return nil
}

// Stop halts the probe loop.
func (p *Prober) Stop(_ context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// RunOnce pings every target concurrently and pushes the results.
func (p *Prober) RunOnce(ctx context.Context) {
	var wg sync.WaitGroup
	for _, host := range p.cfg.Targets {
		wg.Add(1)
		go func(host string) {
			defer wg.Done()
			p.probe(ctx, host)
		}(host)
	}
	wg.Wait()
}

func (p *Prober) probe(ctx context.Context, host string) {
	rtts, err := p.pinger.Ping(ctx, host, p.cfg.Count, p.cfg.Timeout)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("probe failed", zap.String("target", host), zap.Error(err))
		}
		return
	}

	if len(rtts) > 0 {
		samples := make([][]float64, len(rtts))
		for i, rtt := range rtts {
			samples[i] = []float64{Millis(rtt)}
		}
		if _, err := p.sink.Push(ctx, RTTSeries(host), samples...); err != nil {
			p.logger.Warn("push rtt samples", zap.String("target", host), zap.Error(err))
		}
	}

	loss := LossRatio(len(rtts), p.cfg.Count)
	if _, err := p.sink.Push(ctx, LossSeries(host), []float64{loss}); err != nil {
		p.logger.Warn("push loss sample", zap.String("target", host), zap.Error(err))
	}
}

// Millis converts d to fractional milliseconds.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// LossRatio returns the fraction of sent packets that got no reply.
func LossRatio(received, sent int) float64 {
	if sent <= 0 {
		return 0
	}
	if received > sent {
		received = sent
	}
	return float64(sent-received) / float64(sent)
}
