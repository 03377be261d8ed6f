package session

import (
	"context"
	"time"
)

// watchLocked makes sure id is being polled. A poller for another id is
// stopped first. Must be called with c.mu held.
func (c *Controller) watchLocked(id string) {
	if id == "" || !c.alive() {
		return
	}
	if c.pollID == id && c.pollStop != nil {
		return
	}
	c.stopPollerLocked()

	ctx, cancel := context.WithCancel(c.ctx)
	c.pollID = id
	c.pollStop = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.poll(ctx, id)
	}()
}

func (c *Controller) stopPollerLocked() {
	if c.pollStop != nil {
		c.pollStop()
	}
	c.pollStop = nil
	c.pollID = ""
}

// poll checks the status right away and then on every tick until ctx is
// cancelled. Failed checks are retried on the next tick, without backoff.
func (c *Controller) poll(ctx context.Context, id string) {
	c.pollOnce(ctx, id)

	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.pollOnce(ctx, id)
		}
	}
}

func (c *Controller) pollOnce(ctx context.Context, id string) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	st, err := c.gw.CheckStatus(ctx, id)
	if err != nil {
		c.log.Debug("status poll failed", "transaction_id", id, "error", err)
		return
	}
	if st == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.applyStatusLocked(ctx, id, seq, st) {
		c.log.Debug("status polled", "transaction_id", id, "status", c.session.Status)
	}
}
