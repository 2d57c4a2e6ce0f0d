package sandbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/sudankdk/refix-sandbox/internal/languages"
)

const (
	WorkingDir  = "/app"
	NetworkNone = "none"

	DefaultTimeout = 90 * time.Second
	MinTimeout     = time.Second
	MaxTimeout     = 10 * time.Minute

	// LogMaxBytes caps what the daemon keeps of a run's output, and what is
	// read back from it.
	LogMaxBytes = 1024 * 1024
)

// Config is everything needed to create one sandbox container.
type Config struct {
	Image      string
	Cmd        []string
	WorkingDir string
	Memory     int64 // bytes
	CPUShares  int64
	CPU        int64 // NanoCPUs
	PidsLimit  int64
	Ulimits    []*units.Ulimit
	Tmpfs      map[string]string
	CapDrop    []string
	Security   []string
	Network    string
	Timeout    time.Duration
	LogMax     int64 // bytes of output kept
}

// NewConfig builds the container recipe for a profile. Limits and the
// disabled network are always set; there is no option to turn them off.
func NewConfig(p languages.Profile, timeout time.Duration) Config {
	return Config{
		Image:      p.Image,
		Cmd:        append([]string(nil), p.Command...),
		WorkingDir: WorkingDir,
		Memory:     p.Memory,
		CPUShares:  512,
		CPU:        1_000_000_000, // one core
		PidsLimit:  128,
		Ulimits: []*units.Ulimit{
			{Name: "nproc", Soft: 256, Hard: 256},
			{Name: "nofile", Soft: 1024, Hard: 1024},
			{Name: "core", Soft: 0, Hard: 0},
			// biggest file the test process may write
			{Name: "fsize", Soft: 20 * 1024 * 1024, Hard: 20 * 1024 * 1024},
		},
		Tmpfs:    map[string]string{"/tmp": "rw,noexec,nosuid,size=64m"},
		CapDrop:  []string{"ALL"},
		Security: []string{"no-new-privileges"},
		Network:  NetworkNone,
		Timeout:  ClampTimeout(timeout),
		LogMax:   LogMaxBytes,
	}
}

// ClampTimeout keeps a run bound inside [MinTimeout, MaxTimeout]; zero means the default.
func ClampTimeout(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultTimeout
	case d < MinTimeout:
		return MinTimeout
	case d > MaxTimeout:
		return MaxTimeout
	default:
		return d
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Image == "" {
		errs = append(errs, errors.New("image is required"))
	}
	if len(c.Cmd) == 0 {
		errs = append(errs, errors.New("command is required"))
	}
	if c.Memory <= 0 {
		errs = append(errs, fmt.Errorf("memory ceiling must be positive, got %d", c.Memory))
	}
	if c.CPUShares <= 0 || c.CPU <= 0 {
		errs = append(errs, errors.New("cpu limits must be positive"))
	}
	if c.LogMax <= 0 {
		errs = append(errs, fmt.Errorf("log cap must be positive, got %d", c.LogMax))
	}
	if c.Network != NetworkNone {
		errs = append(errs, fmt.Errorf("network must be %q, got %q", NetworkNone, c.Network))
	}
	return errors.Join(errs...)
}

// String renders the limits for log lines.
func (c Config) String() string {
	return fmt.Sprintf("image=%s mem=%s cpu=%.2f shares=%d pids=%d net=%s timeout=%s",
		c.Image, units.BytesSize(float64(c.Memory)), float64(c.CPU)/1e9, c.CPUShares, c.PidsLimit, c.Network, c.Timeout)
}
