package llm

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type FailureClass int

const (
	FailureNone FailureClass = iota
	FailureTimeout
	FailureRateLimit
	FailureServer
	FailureClient
)

func (c FailureClass) String() string {
	switch c {
	case FailureNone:
		return "none"
	case FailureTimeout:
		return "timeout"
	case FailureRateLimit:
		return "rate_limit"
	case FailureServer:
		return "server"
	case FailureClient:
		return "client"
	default:
		return "unknown"
	}
}

// Transient reports whether a retry could plausibly succeed.
func (c FailureClass) Transient() bool {
	return c == FailureTimeout || c == FailureRateLimit || c == FailureServer
}

var statusCodeRe = regexp.MustCompile(`(?:status(?:\s+code)?[:=\s]+)(\d{3})`)

func Classify(err error) FailureClass {
	if err == nil {
		return FailureNone
	}
	if errors.Is(err, context.Canceled) {
		return FailureClient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	msg := strings.ToLower(err.Error())
	if m := statusCodeRe.FindStringSubmatch(msg); len(m) == 2 {
		code, _ := strconv.Atoi(m[1])
		switch {
		case code == 429:
			return FailureRateLimit
		case code >= 500:
			return FailureServer
		case code >= 400:
			return FailureClient
		}
	}
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return FailureRateLimit
	case strings.Contains(msg, "server error") || strings.Contains(msg, "overloaded"):
		return FailureServer
	default:
		return FailureServer
	}
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Bounded applies a per-call timeout to every completion.
type Bounded struct {
	next    Completer
	timeout time.Duration
}

func WithTimeout(next Completer, timeout time.Duration) Completer {
	if timeout <= 0 {
		return next
	}
	return &Bounded{next: next, timeout: timeout}
}

func (b *Bounded) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.next.Complete(ctx, req)
}

// Retrying retries transient transport failures with a short backoff.
// Non-transient errors are returned immediately.
type Retrying struct {
	next     Completer
	attempts int
	sleep    func(ctx context.Context, d time.Duration) error
}

func WithRetry(next Completer, attempts int) Completer {
	if attempts <= 1 {
		return next
	}
	return &Retrying{next: next, attempts: attempts, sleep: sleepContext}
}

func (r *Retrying) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		out, err := r.next.Complete(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !Classify(err).Transient() || attempt == r.attempts {
			break
		}
		if err := r.sleep(ctx, backoffDelay(attempt)); err != nil {
			return "", err
		}
	}
	return "", lastErr
}
