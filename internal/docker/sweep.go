package docker

import (
	"context"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
)

// RemoveStale force-removes sandbox containers older than twice the run
// timeout recorded in their LabelTimeout label, or older than fallback when
// the label is missing or unreadable. Runs always remove their own
// container; this only catches what a crashed process left behind.
func (c *Client) RemoveStale(ctx context.Context, fallback time.Duration) (int, error) {
	containers, err := c.d.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelSandbox+"=true")),
	})
	if err != nil {
		return 0, err
	}

	now := time.Now()
	removed := 0
	for _, ctr := range containers {
		if now.Sub(time.Unix(ctr.Created, 0)) < staleAfter(ctr.Labels, fallback) {
			continue
		}
		h := Handle{ID: ctr.ID}
		if err := c.Remove(ctx, h); err != nil {
			c.log.Warn("failed to remove stale container", "container", h.short(), "err", err)
			continue
		}
		c.log.Info("removed stale container", "container", h.short(), "run_id", ctr.Labels[LabelRun])
		removed++
	}
	return removed, nil
}

func staleAfter(labels map[string]string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(labels[LabelTimeout]); err == nil && d > 0 {
		return 2 * d
	}
	return fallback
}

// SweepZombies calls RemoveStale every interval until ctx is done.
func (c *Client) SweepZombies(ctx context.Context, interval, fallback time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("zombie sweep stopped")
			return
		case <-ticker.C:
			if _, err := c.RemoveStale(ctx, fallback); err != nil {
				c.log.Warn("container list failed", "err", err)
			}
		}
	}
}
