package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/sudankdk/refix-sandbox/internal/sandbox"
	"github.com/sudankdk/refix-sandbox/internal/workspace"
)

const (
	LabelSandbox = "refix.sandbox"
	LabelRun     = "refix.run"
	// LabelTimeout records the run bound so sweepers in other processes
	// know when the container is stale.
	LabelTimeout = "refix.timeout"

	killTimeout = 10 * time.Second
)

// Handle references one ephemeral container. Name is known before the
// container exists, so a handle can always be removed.
type Handle struct {
	ID   string
	Name string
}

func (h Handle) ref() string {
	if h.ID != "" {
		return h.ID
	}
	return h.Name
}

func (h Handle) short() string {
	if len(h.ID) >= 12 {
		return h.ID[:12]
	}
	return h.ref()
}

type Client struct {
	d   Backend
	log *slog.Logger
}

// New connects to the daemon described by the environment (DOCKER_HOST etc).
func New(logger *slog.Logger) (*Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return NewWithBackend(cli, logger), nil
}

func NewWithBackend(b Backend, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{d: b, log: logger}
}

func (c *Client) Close() error {
	return c.d.Close()
}

// Ping fails with ErrBackendUnavailable when the daemon does not answer.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.d.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Create allocates a stopped container named name with the limits in sb.
func (c *Client) Create(ctx context.Context, name string, runID string, sb sandbox.Config) (Handle, error) {
	h := Handle{Name: name}
	if err := sb.Validate(); err != nil {
		return h, &LaunchError{Step: "create", Err: err}
	}

	pids := sb.PidsLimit
	resp, err := c.d.ContainerCreate(ctx,
		&container.Config{
			Image:           sb.Image,
			Cmd:             sb.Cmd,
			WorkingDir:      sb.WorkingDir,
			Tty:             false,
			NetworkDisabled: true,
			Labels: map[string]string{
				LabelSandbox: "true",
				LabelRun:     runID,
				LabelTimeout: sb.Timeout.String(),
			},
		},
		&container.HostConfig{
			AutoRemove:  false,
			NetworkMode: container.NetworkMode(sb.Network),
			Resources: container.Resources{
				Memory:     sb.Memory,
				MemorySwap: sb.Memory,
				CPUShares:  sb.CPUShares,
				NanoCPUs:   sb.CPU,
				PidsLimit:  &pids,
				Ulimits:    sb.Ulimits,
			},
			LogConfig: container.LogConfig{
				Type: "json-file",
				Config: map[string]string{
					"max-size": strconv.FormatInt(sb.LogMax, 10),
					"max-file": "1",
				},
			},
			Tmpfs:       sb.Tmpfs,
			CapDrop:     sb.CapDrop,
			SecurityOpt: sb.Security,
		},
		nil, nil, name,
	)
	if err != nil {
		if client.IsErrConnectionFailed(err) {
			return h, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return h, &LaunchError{Step: "create", Err: err}
	}
	h.ID = resp.ID
	for _, w := range resp.Warnings {
		c.log.Warn("container create warning", "container", h.short(), "warning", w)
	}
	return h, nil
}

// Populate packs every workspace file into one uncompressed tar held in
// memory and uploads it into the working directory with a single call.
// Nothing from the host is bind-mounted.
func (c *Client) Populate(ctx context.Context, h Handle, ws *workspace.Workspace, workDir string) error {
	buf, err := archive(ws, workDir)
	if err != nil {
		return &LaunchError{Step: "populate", Err: err}
	}
	if err := c.d.CopyToContainer(ctx, h.ref(), "/", buf, container.CopyToContainerOptions{}); err != nil {
		return &LaunchError{Step: "populate", Err: err}
	}
	return nil
}

func archive(ws *workspace.Workspace, workDir string) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	now := time.Now()

	dir := strings.Trim(workDir, "/") + "/"
	hdr := &tar.Header{
		Name:     dir,
		Mode:     0o755,
		Typeflag: tar.TypeDir,
		ModTime:  now,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, err
	}

	for _, f := range ws.Files {
		content, err := ws.ReadFile(f.Name)
		if err != nil {
			return nil, err
		}
		hdr := &tar.Header{
			Name:     dir + f.Name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
			ModTime:  now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, err
		}
		if _, err := tw.Write(content); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}

func (c *Client) Start(ctx context.Context, h Handle) error {
	if err := c.d.ContainerStart(ctx, h.ref(), container.StartOptions{}); err != nil {
		return &LaunchError{Step: "start", Err: err}
	}
	return nil
}

// Wait blocks until the container exits or bound elapses. On timeout the
// container is killed and ErrTimeout is returned.
func (c *Client) Wait(ctx context.Context, h Handle, bound time.Duration) (int64, error) {
	waitCtx, cancel := context.WithTimeout(ctx, bound)
	defer cancel()

	statusCh, errCh := c.d.ContainerWait(waitCtx, h.ref(), container.WaitConditionNotRunning)

	select {
	case resp := <-statusCh:
		if resp.Error != nil && resp.Error.Message != "" {
			return resp.StatusCode, fmt.Errorf("container wait: %s", resp.Error.Message)
		}
		return resp.StatusCode, nil
	case err := <-errCh:
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return -1, c.timeout(ctx, h, bound)
		}
		return -1, fmt.Errorf("container wait: %w", err)
	case <-waitCtx.Done():
		return -1, c.timeout(ctx, h, bound)
	}
}

func (c *Client) timeout(ctx context.Context, h Handle, bound time.Duration) error {
	killCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), killTimeout)
	defer cancel()
	if err := c.d.ContainerKill(killCtx, h.ref(), "SIGKILL"); err != nil && !client.IsErrNotFound(err) {
		c.log.Warn("kill after timeout failed", "container", h.short(), "err", err)
	}
	return fmt.Errorf("%w after %s", ErrTimeout, bound)
}

// Logs returns stdout and stderr combined in arrival order, keeping at most
// the last sandbox.LogMaxBytes. Invalid UTF-8 is replaced rather than
// reported. Whatever was read is returned even on error.
func (c *Client) Logs(ctx context.Context, h Handle) (string, error) {
	rc, err := c.d.ContainerLogs(ctx, h.ref(), container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     false,
	})
	if err != nil {
		return "", fmt.Errorf("container logs: %w", err)
	}
	defer rc.Close()

	out := newTailBuffer(sandbox.LogMaxBytes)
	_, err = stdcopy.StdCopy(out, out, rc)
	text := strings.ToValidUTF8(out.String(), "\uFFFD")
	if err != nil {
		return text, fmt.Errorf("read container logs: %w", err)
	}
	return text, nil
}

// Remove force-removes the container. A container that does not exist is not an error.
func (c *Client) Remove(ctx context.Context, h Handle) error {
	err := c.d.ContainerRemove(ctx, h.ref(), container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("remove container %s: %w", h.short(), err)
	}
	return nil
}
