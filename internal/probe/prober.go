// SPDX-License-Identifier: MIT

// Package probe implements lightweight stream reachability checks.
package probe

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tvplayer/playlistd/internal/log"
	"github.com/tvplayer/playlistd/internal/metrics"
	"github.com/tvplayer/playlistd/internal/model"
)

// HeadClient issues a header-only existence check against a URL.
type HeadClient interface {
	Head(ctx context.Context, url string) error
}

// Prober determines per-channel reachability without downloading streams.
// Probe failures degrade to "unavailable", never to an error.
type Prober struct {
	client  HeadClient
	limiter *rate.Limiter
}

// New builds a Prober. rps bounds the outgoing probe rate; rps <= 0 disables
// rate limiting.
func New(client HeadClient, rps float64, burst int) *Prober {
	var lim *rate.Limiter
	if rps > 0 {
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &Prober{client: client, limiter: lim}
}

// Probe reports whether the channel's stream URL answers a header-only
// request. Invalid URLs, transport failures and non-success statuses are all
// "not available".
func (p *Prober) Probe(ctx context.Context, ch model.Channel) bool {
	if !model.ValidStreamURL(ch.URL) {
		metrics.RecordProbe(false)
		return false
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			metrics.RecordProbe(false)
			return false
		}
	}
	if err := p.client.Head(ctx, ch.URL); err != nil {
		logger := log.WithComponentFromContext(ctx, "probe")
		logger.Debug().
			Err(err).
			Str("event", "probe.unavailable").
			Str("url", ch.URL).
			Msg("stream probe failed")
		metrics.RecordProbe(false)
		return false
	}
	metrics.RecordProbe(true)
	return true
}

// ProbeAll probes channels with bounded concurrency and returns availability
// keyed by channel ID.
func (p *Prober) ProbeAll(ctx context.Context, channels []model.Channel, concurrency int) map[int64]bool {
	if concurrency < 1 {
		concurrency = 4
	}

	var mu sync.Mutex
	results := make(map[int64]bool, len(channels))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, ch := range channels {
		ch := ch
		g.Go(func() error {
			ok := p.Probe(ctx, ch)
			mu.Lock()
			results[ch.ID] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors
	return results
}
