package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/sudankdk/refix-sandbox/internal/languages"
	"github.com/sudankdk/refix-sandbox/internal/sandbox"
	"github.com/sudankdk/refix-sandbox/internal/workspace"
)

const EnvPrefix = "REFIX"

// responseSlack is added to the run timeout for the default write timeout:
// a response is written only after the run and its cleanup finish.
const responseSlack = 30 * time.Second

type Server struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BodyLimit       int           `mapstructure:"body_limit"`
}

type Sandbox struct {
	ScratchDir    string        `mapstructure:"scratch_dir"`
	Timeout       time.Duration `mapstructure:"timeout"`
	PullImages    bool          `mapstructure:"pull_images"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Server   Server                        `mapstructure:"server"`
	Sandbox  Sandbox                       `mapstructure:"sandbox"`
	Profiles map[string]languages.Override `mapstructure:"profiles"`
	Log      Log                           `mapstructure:"log"`
}

// Load reads defaults, then refix-sandbox.yaml (from path, or . and
// $HOME/.refix when path is empty), then REFIX_* environment variables.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("refix-sandbox")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.refix")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Sandbox.Timeout = sandbox.ClampTimeout(cfg.Sandbox.Timeout)
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = cfg.Sandbox.Timeout + responseSlack
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.read_timeout", 10*time.Second)
	// zero derives it from sandbox.timeout
	v.SetDefault("server.write_timeout", time.Duration(0))
	v.SetDefault("server.shutdown_timeout", 2*time.Minute)
	v.SetDefault("server.body_limit", 4*1024*1024)

	v.SetDefault("sandbox.scratch_dir", workspace.DefaultRoot())
	v.SetDefault("sandbox.timeout", sandbox.DefaultTimeout)
	v.SetDefault("sandbox.pull_images", false)
	v.SetDefault("sandbox.sweep_interval", time.Minute)

	// registered so env vars like REFIX_PROFILES_PYTHON_IMAGE are picked up
	for _, name := range []string{languages.Python, languages.JavaScript, languages.TypeScript} {
		v.SetDefault("profiles."+name+".image", "")
		v.SetDefault("profiles."+name+".memory", "")
	}

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func (c *Config) validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.WriteTimeout < c.Sandbox.Timeout {
		errs = append(errs, fmt.Errorf("server.write_timeout %s is shorter than sandbox.timeout %s", c.Server.WriteTimeout, c.Sandbox.Timeout))
	}
	if c.Server.BodyLimit <= 0 {
		errs = append(errs, fmt.Errorf("server.body_limit must be positive, got %d", c.Server.BodyLimit))
	}
	if c.Sandbox.ScratchDir == "" {
		errs = append(errs, errors.New("sandbox.scratch_dir is required"))
	}
	if c.Sandbox.SweepInterval < 0 {
		errs = append(errs, errors.New("sandbox.sweep_interval must not be negative"))
	}
	if _, err := languages.NewRegistry(c.Profiles); err != nil {
		errs = append(errs, fmt.Errorf("profiles: %w", err))
	}
	return errors.Join(errs...)
}

// Registry builds the language profiles with any configured overrides.
func (c *Config) Registry() (*languages.Registry, error) {
	return languages.NewRegistry(c.Profiles)
}
