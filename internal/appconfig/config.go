package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pkt.systems/termfolio/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion  int                                   `mapstructure:"config_version" yaml:"config_version"`
	StateDir       string                                `mapstructure:"state_dir" yaml:"state_dir"`
	EnvFile        string                                `mapstructure:"env_file" yaml:"env_file"`
	DefaultVariant string                                `mapstructure:"default_variant" yaml:"default_variant"`
	Profile        schema.Profile                        `mapstructure:"profile" yaml:"profile"`
	Variants       map[schema.VariantName]schema.Variant `mapstructure:"variants" yaml:"variants"`
	Terminal       TerminalConfig                        `mapstructure:"terminal" yaml:"terminal"`
	HTTP           HTTPConfig                            `mapstructure:"http" yaml:"http"`
	SSH            SSHConfig                             `mapstructure:"ssh" yaml:"ssh"`
	Stats          StatsConfig                           `mapstructure:"stats" yaml:"stats"`
	Logging        LoggingConfig                         `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// TerminalConfig controls the interpreter sessions.
type TerminalConfig struct {
	InitialView       string         `mapstructure:"initial_view" yaml:"initial_view"`
	HistoryMax        int            `mapstructure:"history_max" yaml:"history_max"`
	MaxBlocks         int            `mapstructure:"max_blocks" yaml:"max_blocks"`
	Loader            []LoaderConfig `mapstructure:"loader" yaml:"loader"`
	LoaderHideMillis  int            `mapstructure:"loader_hide_ms" yaml:"loader_hide_ms"`
	SessionTTLMinutes int            `mapstructure:"session_ttl_minutes" yaml:"session_ttl_minutes"`
}

// LoaderConfig is one loader step.
type LoaderConfig struct {
	Percent     int `mapstructure:"percent" yaml:"percent"`
	DelayMillis int `mapstructure:"delay_ms" yaml:"delay_ms"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr            string `mapstructure:"addr" yaml:"addr"`
	SessionCookie   string `mapstructure:"session_cookie" yaml:"session_cookie"`
	SessionTTLHours int    `mapstructure:"session_ttl_hours" yaml:"session_ttl_hours"`
	BaseURL         string `mapstructure:"base_url" yaml:"base_url"`
	BasePath        string `mapstructure:"base_path" yaml:"base_path"`
	InitialBlocks   int    `mapstructure:"initial_blocks" yaml:"initial_blocks"`
	Theme           string `mapstructure:"theme" yaml:"theme"`
	// TrustedProxies lists proxy addresses or CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies []string `mapstructure:"trusted_proxies" yaml:"trusted_proxies"`
}

// SSHConfig configures the SSH server.
type SSHConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	HostKeyPath string `mapstructure:"host_key_path" yaml:"host_key_path"`
	WebURL      string `mapstructure:"web_url" yaml:"web_url"`
	Theme       string `mapstructure:"theme" yaml:"theme"`
}

// StatsConfig configures the sqlite statistics store.
type StatsConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	Path         string `mapstructure:"path" yaml:"path"`
	Salt         string `mapstructure:"salt" yaml:"salt"`
	RecordVisits bool   `mapstructure:"record_visits" yaml:"record_visits"`
}

// LoggingConfig controls audit logging behavior.
type LoggingConfig struct {
	DisableAuditTrails bool `mapstructure:"disable_audit_trails" yaml:"disable_audit_trails"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	stateDir, err := defaultStateDir()
	if err != nil {
		return Config{}, err
	}
	steps := schema.DefaultLoaderSteps()
	loader := make([]LoaderConfig, 0, len(steps))
	for _, step := range steps {
		loader = append(loader, LoaderConfig{Percent: step.Percent, DelayMillis: int(step.Delay / time.Millisecond)})
	}
	return Config{
		ConfigVersion:  CurrentConfigVersion,
		StateDir:       stateDir,
		EnvFile:        "",
		DefaultVariant: string(schema.DefaultVariant),
		Profile:        schema.DefaultProfile(),
		Variants: map[schema.VariantName]schema.Variant{
			schema.DefaultVariant: {},
		},
		Terminal: TerminalConfig{
			InitialView:       string(schema.ViewSelector),
			HistoryMax:        schema.DefaultHistoryMax,
			MaxBlocks:         schema.DefaultMaxBlocks,
			Loader:            loader,
			LoaderHideMillis:  int(schema.DefaultLoaderHide / time.Millisecond),
			SessionTTLMinutes: int(schema.DefaultSessionTTL / time.Minute),
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			SessionCookie:   "termfolio_session",
			SessionTTLHours: 24,
			BaseURL:         "",
			BasePath:        "",
			InitialBlocks:   200,
			Theme:           string(schema.DefaultTheme),
		},
		SSH: SSHConfig{
			Addr:        ":2222",
			HostKeyPath: filepath.Join(stateDir, "ssh_host_key"),
			WebURL:      "",
			Theme:       string(schema.DefaultTheme),
		},
		Stats: StatsConfig{
			Enabled:      true,
			Path:         filepath.Join(stateDir, "stats.db"),
			Salt:         "${TERMFOLIO_STATS_SALT}",
			RecordVisits: true,
		},
		Logging: LoggingConfig{
			DisableAuditTrails: false,
		},
	}, nil
}

// ServiceConfig converts the terminal, profile and variant settings for the core service.
func (c Config) ServiceConfig() (schema.ServiceConfig, error) {
	view, err := schema.ParseViewMode(c.Terminal.InitialView)
	if err != nil {
		return schema.ServiceConfig{}, fmt.Errorf("terminal.initial_view: %w", err)
	}
	theme, ok := schema.NormalizeThemeName(c.HTTP.Theme)
	if !ok {
		theme = schema.DefaultTheme
	}
	steps := make([]schema.LoaderStep, 0, len(c.Terminal.Loader))
	for _, step := range c.Terminal.Loader {
		steps = append(steps, schema.LoaderStep{
			Percent: step.Percent,
			Delay:   time.Duration(step.DelayMillis) * time.Millisecond,
		})
	}
	return schema.NormalizeServiceConfig(schema.ServiceConfig{
		Profile:             c.Profile,
		Variants:            c.Variants,
		DefaultVariant:      schema.VariantName(c.DefaultVariant),
		DefaultTheme:        theme,
		InitialView:         view,
		HistoryMax:          c.Terminal.HistoryMax,
		MaxBlocks:           c.Terminal.MaxBlocks,
		LoaderSteps:         steps,
		LoaderHide:          time.Duration(c.Terminal.LoaderHideMillis) * time.Millisecond,
		SessionTTL:          time.Duration(c.Terminal.SessionTTLMinutes) * time.Minute,
		DisableAuditLogging: c.Logging.DisableAuditTrails,
	})
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	base := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "termfolio", "config.yaml"), nil
}

func defaultStateDir() (string, error) {
	base := strings.TrimSpace(os.Getenv("XDG_STATE_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "termfolio"), nil
}
