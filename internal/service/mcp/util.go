package mcp

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"
)

// isLoopbackURL returns true if rawURL resolves to a loopback address.
// It assumes that rawURL is a valid URL.
func isLoopbackURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false // invalid URL, cannot determine loopback
	}
	host := u.Hostname()

	if host == "" {
		return false // no host, not a loopback
	}
	if strings.EqualFold(host, "localhost") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}

	return false
}

// callTimeout returns the context for a single round-trip to a server.
// Servers without a configured timeout get the parent context unchanged.
func callTimeout(ctx context.Context, timeoutSec int) (context.Context, context.CancelFunc) {
	if timeoutSec <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
}

// detach runs fn on a context that is not cancelled together with ctx.
// The caller stops waiting once ctx is done, but the request itself keeps running to completion,
// so abandoning a call never leaves a connection half-used.
func detach[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(context.WithoutCancel(ctx))
		ch <- outcome{v, err}
	}()

	select {
	case o := <-ch:
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
