package toolserver

import (
	"context"
	"net/http"
	"time"
)

const (
	// DefaultPollInterval is the pause between readiness attempts.
	DefaultPollInterval = 200 * time.Millisecond

	// DefaultProbeRequestTimeout bounds a single readiness request.
	DefaultProbeRequestTimeout = 2 * time.Second
)

// Prober polls an endpoint until it answers.
type Prober struct {
	Client         *http.Client
	Interval       time.Duration
	RequestTimeout time.Duration
}

// NewProber returns a Prober with the default interval and request timeout.
// Keep-alives are disabled so a probe never leaves an idle connection behind.
func NewProber() *Prober {
	return &Prober{
		Client: &http.Client{
			Transport: &http.Transport{DisableKeepAlives: true},
		},
		Interval:       DefaultPollInterval,
		RequestTimeout: DefaultProbeRequestTimeout,
	}
}

// WaitUntilReady polls url with the default Prober.
func WaitUntilReady(ctx context.Context, url string, deadline time.Time) bool {
	return NewProber().WaitUntilReady(ctx, url, deadline)
}

// WaitUntilReady issues GET requests to url until any response arrives or the
// deadline passes. The status code is ignored: the probe only confirms that
// the listener accepts connections. Connection errors mean "not yet".
//
// It returns false no earlier than deadline and no later than deadline plus
// one poll interval. A cancelled ctx returns false immediately.
func (p *Prober) WaitUntilReady(ctx context.Context, url string, deadline time.Time) bool {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		if p.probeOnce(ctx, url, remaining) {
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		wait := interval
		if remaining = time.Until(deadline); remaining > 0 && remaining < wait {
			wait = remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}

func (p *Prober) probeOnce(ctx context.Context, url string, remaining time.Duration) bool {
	timeout := p.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultProbeRequestTimeout
	}
	if remaining < timeout {
		timeout = remaining
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	// SSE endpoints hold the stream open; headers are all we need.
	req.Header.Set("Accept", "text/event-stream, application/json, */*")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}
