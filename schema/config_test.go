package schema

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeServiceConfigDefaults(t *testing.T) {
	cfg, err := NormalizeServiceConfig(ServiceConfig{})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Profile.Handle != "b1swa" || cfg.Profile.Prompt() != "b1swa@portfolio:~$" {
		t.Fatalf("expected default profile, got %q", cfg.Profile.Prompt())
	}
	if cfg.DefaultVariant != DefaultVariant {
		t.Fatalf("expected default variant, got %q", cfg.DefaultVariant)
	}
	if _, ok := cfg.Variants[DefaultVariant]; !ok {
		t.Fatalf("expected default variant entry")
	}
	if cfg.InitialView != ViewSelector || cfg.DefaultTheme != DefaultTheme {
		t.Fatalf("unexpected view/theme %q %q", cfg.InitialView, cfg.DefaultTheme)
	}
	if cfg.HistoryMax != DefaultHistoryMax || cfg.MaxBlocks != DefaultMaxBlocks || cfg.SessionTTL != DefaultSessionTTL {
		t.Fatalf("unexpected limits %+v", cfg)
	}
	if len(cfg.LoaderSteps) != 4 || cfg.LoaderHide != DefaultLoaderHide {
		t.Fatalf("unexpected loader %+v %s", cfg.LoaderSteps, cfg.LoaderHide)
	}
}

func TestNormalizeServiceConfigKeepsCustomLoader(t *testing.T) {
	cfg, err := NormalizeServiceConfig(ServiceConfig{
		LoaderSteps: []LoaderStep{{Percent: 100, Delay: time.Millisecond}},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(cfg.LoaderSteps) != 1 || cfg.LoaderHide != 0 {
		t.Fatalf("expected custom loader kept, got %+v hide %s", cfg.LoaderSteps, cfg.LoaderHide)
	}
}

func TestNormalizeServiceConfigRejects(t *testing.T) {
	cases := []struct {
		name string
		cfg  ServiceConfig
	}{
		{"same commands", ServiceConfig{Profile: Profile{Handle: "x", Command: "pf", ShortCmd: "pf"}}},
		{"bad view", ServiceConfig{InitialView: "desktop"}},
		{"bad percent", ServiceConfig{LoaderSteps: []LoaderStep{{Percent: 120}}}},
		{"negative delay", ServiceConfig{LoaderSteps: []LoaderStep{{Percent: 50, Delay: -time.Second}}}},
		{"tiny log", ServiceConfig{MaxBlocks: 1}},
	}
	for _, tc := range cases {
		if _, err := NormalizeServiceConfig(tc.cfg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestResolveProfileVariants(t *testing.T) {
	cfg, err := NormalizeServiceConfig(ServiceConfig{
		Variants: map[VariantName]Variant{
			"Alt": {Skills: map[string]int{"PYTHON": 10}},
		},
	})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	profile, name, err := cfg.ResolveProfile("alt")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if name != "alt" {
		t.Fatalf("expected normalized variant name, got %q", name)
	}
	found := false
	for _, group := range profile.SkillGroups {
		for _, skill := range group.Skills {
			if skill.Name == "Python" {
				found = true
				if skill.Percent != 10 {
					t.Fatalf("expected override, got %d", skill.Percent)
				}
			}
		}
	}
	if !found {
		t.Fatalf("expected Python skill in default profile")
	}
	if _, _, err := cfg.ResolveProfile("missing"); !errors.Is(err, ErrUnknownVariant) {
		t.Fatalf("expected unknown variant, got %v", err)
	}
}

func TestValidateSessionID(t *testing.T) {
	for _, id := range []SessionID{"abc", "a-b_c9"} {
		if err := ValidateSessionID(id); err != nil {
			t.Fatalf("%q: unexpected error %v", id, err)
		}
	}
	for _, id := range []SessionID{"", "ABC", "a b", "../x"} {
		if err := ValidateSessionID(id); !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("%q: expected invalid session", id)
		}
	}
}

func TestIsASCIIArt(t *testing.T) {
	if !IsASCIIArt("██ heading") || !IsASCIIArt("➤ Technologies: Go") {
		t.Fatalf("expected art detection")
	}
	if IsASCIIArt("plain text █") {
		t.Fatalf("single block rune should not count")
	}
}
