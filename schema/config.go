package schema

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// LoaderStep is one width update of the loader overlay.
// Delay is measured from the previous step.
type LoaderStep struct {
	Percent int
	Delay   time.Duration
}

// ServiceConfig defines content, defaults and limits for the core service.
type ServiceConfig struct {
	Profile        Profile
	Variants       map[VariantName]Variant
	DefaultVariant VariantName
	DefaultTheme   ThemeName
	// InitialView is the view a new session starts in.
	InitialView ViewMode
	HistoryMax  int
	MaxBlocks   int
	LoaderSteps []LoaderStep
	// LoaderHide is the pause between the last step and the loader resolving.
	LoaderHide time.Duration
	SessionTTL time.Duration
	// DisableAuditLogging disables per-command debug logs.
	DisableAuditLogging bool
}

const (
	// DefaultHistoryMax is the default per-session history cap.
	DefaultHistoryMax = 500
	// DefaultMaxBlocks is the default per-session output log cap.
	DefaultMaxBlocks = 1000
	// DefaultLoaderHide is the default pause before the loader resolves.
	DefaultLoaderHide = 600 * time.Millisecond
	// DefaultSessionTTL is the default idle lifetime of a session.
	DefaultSessionTTL = 2 * time.Hour
)

// DefaultLoaderSteps returns the stock loader progression (1.3s of steps).
func DefaultLoaderSteps() []LoaderStep {
	return []LoaderStep{
		{Percent: 30, Delay: 200 * time.Millisecond},
		{Percent: 60, Delay: 300 * time.Millisecond},
		{Percent: 90, Delay: 600 * time.Millisecond},
		{Percent: 100, Delay: 200 * time.Millisecond},
	}
}

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if strings.TrimSpace(cfg.Profile.Handle) == "" {
		cfg.Profile = DefaultProfile()
	}
	if cfg.Profile.Host == "" {
		cfg.Profile.Host = "portfolio"
	}
	if cfg.Profile.Command == "" {
		cfg.Profile.Command = "portfolio"
	}
	if cfg.Profile.ShortCmd == "" {
		cfg.Profile.ShortCmd = "pf"
	}
	if cfg.Profile.Command == cfg.Profile.ShortCmd {
		return ServiceConfig{}, errors.New("profile command and short command must differ")
	}
	if cfg.DefaultVariant == "" {
		cfg.DefaultVariant = DefaultVariant
	}
	variants := make(map[VariantName]Variant, len(cfg.Variants)+1)
	for name, variant := range cfg.Variants {
		variants[NormalizeVariantName(name)] = variant
	}
	cfg.Variants = variants
	cfg.DefaultVariant = NormalizeVariantName(cfg.DefaultVariant)
	if _, ok := cfg.Variants[cfg.DefaultVariant]; !ok {
		cfg.Variants[cfg.DefaultVariant] = Variant{}
	}
	if cfg.DefaultTheme == "" {
		cfg.DefaultTheme = DefaultTheme
	}
	if cfg.InitialView == "" {
		cfg.InitialView = ViewSelector
	}
	if _, err := ParseViewMode(string(cfg.InitialView)); err != nil {
		return ServiceConfig{}, fmt.Errorf("initial view: %w", err)
	}
	if cfg.HistoryMax <= 0 {
		cfg.HistoryMax = DefaultHistoryMax
	}
	if cfg.MaxBlocks <= 0 {
		cfg.MaxBlocks = DefaultMaxBlocks
	}
	if cfg.MaxBlocks < 2 {
		return ServiceConfig{}, errors.New("max blocks must keep the banner and one block")
	}
	if len(cfg.LoaderSteps) == 0 {
		cfg.LoaderSteps = DefaultLoaderSteps()
		if cfg.LoaderHide == 0 {
			cfg.LoaderHide = DefaultLoaderHide
		}
	}
	for _, step := range cfg.LoaderSteps {
		if step.Percent < 0 || step.Percent > 100 {
			return ServiceConfig{}, fmt.Errorf("loader step percent %d out of range", step.Percent)
		}
		if step.Delay < 0 {
			return ServiceConfig{}, errors.New("loader step delay must not be negative")
		}
	}
	if cfg.LoaderHide < 0 {
		cfg.LoaderHide = 0
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	return cfg, nil
}

// NormalizeVariantName folds a variant name to the form variants are keyed by.
func NormalizeVariantName(name VariantName) VariantName {
	return VariantName(strings.ToLower(strings.TrimSpace(string(name))))
}

// ResolveProfile returns the profile with the named variant applied.
func (cfg ServiceConfig) ResolveProfile(name VariantName) (Profile, VariantName, error) {
	name = NormalizeVariantName(name)
	if name == "" {
		name = cfg.DefaultVariant
	}
	variant, ok := cfg.Variants[name]
	if !ok {
		return Profile{}, "", ErrUnknownVariant
	}
	return cfg.Profile.WithVariant(variant), name, nil
}
