package docker

import (
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"golang.org/x/sync/errgroup"
)

// EnsureImage checks that imageName is present locally, pulling it when pull is set.
func (c *Client) EnsureImage(ctx context.Context, imageName string, pull bool) error {
	resp, err := c.d.ImageInspect(ctx, imageName)
	if err == nil {
		c.log.Info("image found", "image", imageName, "id", resp.ID)
		return nil
	}
	if client.IsErrConnectionFailed(err) {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("inspect image %s: %w", imageName, err)
	}
	if !pull {
		return fmt.Errorf("image %s is not present and pulling is disabled", imageName)
	}

	c.log.Info("pulling image", "image", imageName)
	out, err := c.d.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", imageName, err)
	}
	defer out.Close()
	if _, err := io.Copy(io.Discard, out); err != nil {
		return fmt.Errorf("pull image %s: %w", imageName, err)
	}
	return nil
}

// EnsureImages runs EnsureImage for every image concurrently and returns the first error.
func (c *Client) EnsureImages(ctx context.Context, images []string, pull bool) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, img := range images {
		img := img
		g.Go(func() error {
			return c.EnsureImage(gctx, img, pull)
		})
	}
	return g.Wait()
}
