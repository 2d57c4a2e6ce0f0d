package executer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sudankdk/refix-sandbox/internal/docker"
	"github.com/sudankdk/refix-sandbox/internal/languages"
	"github.com/sudankdk/refix-sandbox/internal/metrics"
	"github.com/sudankdk/refix-sandbox/internal/model"
	"github.com/sudankdk/refix-sandbox/internal/sandbox"
	"github.com/sudankdk/refix-sandbox/internal/utils"
	"github.com/sudankdk/refix-sandbox/internal/workspace"
)

const cleanupTimeout = 30 * time.Second

// Runtime is the container lifecycle the executor drives. *docker.Client implements it.
type Runtime interface {
	Create(ctx context.Context, name, runID string, sb sandbox.Config) (docker.Handle, error)
	Populate(ctx context.Context, h docker.Handle, ws *workspace.Workspace, workDir string) error
	Start(ctx context.Context, h docker.Handle) error
	Wait(ctx context.Context, h docker.Handle, bound time.Duration) (int64, error)
	Logs(ctx context.Context, h docker.Handle) (string, error)
	Remove(ctx context.Context, h docker.Handle) error
}

var _ Runtime = (*docker.Client)(nil)

type Options struct {
	ScratchDir string
	Timeout    time.Duration
	Logger     *slog.Logger
	Metrics    *metrics.Recorder
}

type Executor struct {
	rt       Runtime
	profiles *languages.Registry
	scratch  string
	timeout  time.Duration
	log      *slog.Logger
	metrics  *metrics.Recorder
}

func NewExecutor(rt Runtime, profiles *languages.Registry, opts Options) *Executor {
	if profiles == nil {
		profiles = languages.NewDefaultRegistry()
	}
	if opts.ScratchDir == "" {
		opts.ScratchDir = workspace.DefaultRoot()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Executor{
		rt:       rt,
		profiles: profiles,
		scratch:  opts.ScratchDir,
		timeout:  sandbox.ClampTimeout(opts.Timeout),
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
}

// Run executes the test against the code in a fresh container and returns
// the verdict. Every run-level fault is reported through the result; the
// only error returned is docker.ErrBackendUnavailable. Cancelling ctx does
// not stop a run that has started: it finishes and cleans up first.
func (e *Executor) Run(ctx context.Context, req model.ExecutionRequest) (model.ExecutionResult, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()
	done := e.metrics.RunStarted()
	defer done()

	profile := e.profiles.Resolve(req.Language)
	files := profile.Files(utils.Sanitize(req.CodeUnderTest), utils.Sanitize(req.TestCode))

	ws, err := workspace.Build(e.scratch, files)
	if err != nil {
		e.log.Error("workspace build failed", "profile", profile.Name, "err", err)
		res := result(model.StatusError, fmt.Sprintf("failed to prepare workspace: %v", err))
		e.metrics.ObserveRun(profile.Name, res.Status, time.Since(start))
		return res, nil
	}
	log := e.log.With("run_id", ws.ID.String(), "profile", profile.Name)
	defer func() {
		if err := ws.Destroy(); err != nil {
			log.Warn("workspace cleanup failed", "err", err)
			e.metrics.CleanupFailed("workspace")
		}
	}()

	res, err := e.execute(ctx, log, profile, ws)
	e.metrics.ObserveRun(profile.Name, res.Status, time.Since(start))
	log.Info("run finished", "status", res.Status, "duration", time.Since(start))
	return res, err
}

func (e *Executor) execute(ctx context.Context, log *slog.Logger, profile languages.Profile, ws *workspace.Workspace) (model.ExecutionResult, error) {
	sb := sandbox.NewConfig(profile, e.timeout)

	// The name is fixed before Create so the deferred remove has something to
	// target even if Create fails after the daemon allocated the container.
	h := docker.Handle{Name: "refix-run-" + ws.ID.String()}
	defer func() {
		e.removeContainer(ctx, log, h)
	}()

	created, err := e.rt.Create(ctx, h.Name, ws.ID.String(), sb)
	if created.ID != "" {
		h.ID = created.ID
	}
	if err != nil {
		if errors.Is(err, docker.ErrBackendUnavailable) {
			log.Error("container backend unreachable", "err", err)
			return result(model.StatusError, err.Error()), err
		}
		log.Warn("container create failed", "err", err)
		return Classify(profile, Outcome{LaunchErr: err}), nil
	}

	if err := e.rt.Populate(ctx, h, ws, sb.WorkingDir); err != nil {
		log.Warn("container populate failed", "err", err)
		return Classify(profile, Outcome{LaunchErr: err}), nil
	}
	if err := e.rt.Start(ctx, h); err != nil {
		log.Warn("container start failed", "err", err)
		return Classify(profile, Outcome{LaunchErr: err}), nil
	}
	log.Debug("sandbox started", "limits", sb.String())

	code, waitErr := e.rt.Wait(ctx, h, sb.Timeout)
	if waitErr != nil {
		log.Warn("container wait failed", "err", waitErr)
	}
	logs, logErr := e.rt.Logs(ctx, h)
	if logErr != nil {
		log.Warn("log collection failed", "err", logErr)
	}

	return Classify(profile, Outcome{
		WaitErr:  waitErr,
		ExitCode: code,
		Log:      logs,
		LogErr:   logErr,
	}), nil
}

// removeContainer never fails the run; a leftover container is logged and
// later picked up by the zombie sweep.
func (e *Executor) removeContainer(ctx context.Context, log *slog.Logger, h docker.Handle) {
	rmCtx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()
	if err := e.rt.Remove(rmCtx, h); err != nil {
		log.Warn("container cleanup failed", "container", h.Name, "err", err)
		e.metrics.CleanupFailed("container")
	}
}
