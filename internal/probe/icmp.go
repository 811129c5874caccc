package probe

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// Pinger measures round-trip times to a host.
type Pinger interface {
	// Ping sends up to count echo requests and returns the RTT of every
	// reply received. Lost packets produce no entry.
	Ping(ctx context.Context, host string, count int, timeout time.Duration) ([]time.Duration, error)
}

// ICMPPinger implements Pinger with ICMP echo requests.
type ICMPPinger struct {
	Privileged bool
}

// NewICMPPinger returns an ICMPPinger. Windows always needs privileged
// (raw socket) mode.
func NewICMPPinger(privileged bool) *ICMPPinger {
	return &ICMPPinger{Privileged: privileged || runtime.GOOS == "windows"}
}

// Ping implements Pinger.
func (p *ICMPPinger) Ping(ctx context.Context, host string, count int, timeout time.Duration) ([]time.Duration, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}
	pinger.Count = count
	pinger.Timeout = timeout
	pinger.SetPrivileged(p.Privileged)

	var mu sync.Mutex
	rtts := make([]time.Duration, 0, count)
	pinger.OnRecv = func(pkt *probing.Packet) {
		mu.Lock()
		rtts = append(rtts, pkt.Rtt)
		mu.Unlock()
	}

	// Run with context for cancellation support.
	done := make(chan error, 1)
	go func() { done <- pinger.Run() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		pinger.Stop()
		<-done
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("ping %s: %w", host, err)
	}

	mu.Lock()
	defer mu.Unlock()
	return rtts, nil
}
