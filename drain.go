package main

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// drainer is the consumer side of the ring. Frames are persisted with
// sequential ids starting at 0, in the order they were committed.
type drainer struct {
	ring     *Ring
	store    FrameStore
	clock    Clock
	interval time.Duration // idle poll period
	metrics  *Metrics
	log      *zap.Logger
	progress io.Writer

	next int // id of the next frame to persist
}

// persistOne moves the oldest pending frame to the store. It reports false
// when nothing was pending.
func (d *drainer) persistOne() (bool, error) {
	_, slot, ok := d.ring.Consume()
	if !ok {
		return false, nil
	}
	if err := d.store.Persist(d.next, slot); err != nil {
		return true, err
	}
	d.next++
	d.metrics.FramesPersisted.Inc()
	d.metrics.Pending.Dec()
	return true, nil
}

// run persists frames while the capture loop produces them and returns once
// every frame of the session has been persisted. An empty ring is polled
// once per frame interval.
func (d *drainer) run(ctx context.Context) error {
	d.log.Debug("drain loop started", zap.Duration("poll", d.interval))
	for !d.ring.State().Finished() {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := d.persistOne()
		if err != nil {
			return err
		}
		if !ok {
			d.metrics.DrainIdlePolls.Inc()
			d.clock.Sleep(d.interval)
		}
	}
	d.log.Debug("drain loop finished", zap.Int("persisted", d.next))
	return nil
}

// flush persists everything pending, without waiting for more.
func (d *drainer) flush() error {
	dots := &rate.Sometimes{Every: progressEvery}
	for {
		ok, err := d.persistOne()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		dots.Do(func() { dot(d.progress) })
	}
}
