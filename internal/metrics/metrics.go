// Package metrics aggregates relay throughput stats so server-side
// bottlenecks can be diagnosed without logging every forwarded frame.
package metrics

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SessionCounter reports the number of live transport sessions, for context
// in the periodic summary.
type SessionCounter interface {
	ActiveCount() int
}

// Summary is one drained window of relay activity.
type Summary struct {
	Frames       int64
	EncodedBytes int64
	DecodedBytes int64
	Window       time.Duration
}

// Aggregator owns windowed relay counters. Record is two atomic adds and
// never blocks the relay path; Drain swaps the window out.
type Aggregator struct {
	frames       atomic.Int64
	encodedBytes atomic.Int64
	decodedBytes atomic.Int64
	lastDrain    atomic.Int64 // unix millis

	sessions SessionCounter
	logger   *zap.Logger
}

// New creates an Aggregator.
func New(sessions SessionCounter, logger *zap.Logger) *Aggregator {
	a := &Aggregator{
		sessions: sessions,
		logger:   logger,
	}
	a.lastDrain.Store(time.Now().UnixMilli())
	return a
}

// Record counts one dispatched frame with its encoded and decoded sizes.
func (a *Aggregator) Record(encodedLen int, decodedBytes int64) {
	a.frames.Add(1)
	if encodedLen > 0 {
		a.encodedBytes.Add(int64(encodedLen))
	}
	if decodedBytes > 0 {
		a.decodedBytes.Add(decodedBytes)
	}
}

// Drain resets the counters and returns the window they covered.
func (a *Aggregator) Drain() Summary {
	now := time.Now().UnixMilli()
	windowMs := now - a.lastDrain.Swap(now)
	return Summary{
		Frames:       a.frames.Swap(0),
		EncodedBytes: a.encodedBytes.Swap(0),
		DecodedBytes: a.decodedBytes.Swap(0),
		Window:       time.Duration(windowMs) * time.Millisecond,
	}
}

// Run drains and logs a summary every interval until the context is
// cancelled. Idle windows are skipped to avoid noise.
func (a *Aggregator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.logSummary()
		}
	}
}

func (a *Aggregator) logSummary() {
	s := a.Drain()
	if s.Frames == 0 || s.Window <= 0 {
		return
	}

	windowMs := float64(s.Window.Milliseconds())
	fps := float64(s.Frames) * 1000.0 / windowMs
	avgEncodedKB := float64(s.EncodedBytes) / float64(s.Frames) / 1024.0
	avgDecodedKB := float64(s.DecodedBytes) / float64(s.Frames) / 1024.0
	estMbps := float64(s.DecodedBytes) * 8.0 / windowMs / 1000.0

	a.logger.Info("Relay throughput",
		zap.Float64("fps", fps),
		zap.Float64("avgDecodedKB", avgDecodedKB),
		zap.Float64("avgEncodedKB", avgEncodedKB),
		zap.Float64("estMbps", estMbps),
		zap.Int64("frames", s.Frames),
		zap.Int("activeSessions", a.sessions.ActiveCount()),
		zap.Duration("window", s.Window),
	)
}
