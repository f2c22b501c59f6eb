package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/core"
	"pkt.systems/termfolio/internal/appconfig"
	"pkt.systems/termfolio/internal/eventbus"
	"pkt.systems/termfolio/internal/localtui"
	"pkt.systems/termfolio/internal/stats"
	"pkt.systems/termfolio/schema"
)

func newLocalCmd(cfgPath *string) *cobra.Command {
	var theme string
	var variant string
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run the portfolio in this terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			serviceCfg, err := cfg.ServiceConfig()
			if err != nil {
				return err
			}
			consoleCfg := localConsoleConfig(cfg, theme, variant)
			store, err := openStats(ctx, cfg, logger)
			if err != nil {
				return err
			}
			deps := core.ServiceDeps{Logger: logger}
			if store != nil {
				defer func() { _ = store.Close() }()
				deps.Recorder = store
				if cfg.Stats.RecordVisits {
					if err := store.RecordVisit(ctx, stats.Visit{RemoteAddr: "localhost", Transport: schema.TransportLocal, Variant: consoleCfg.Variant}); err != nil {
						logger.Warn("local visit record failed", "err", err)
					}
				}
			}
			bus := eventbus.New(logger)
			deps.EventSink = bus
			service, err := core.NewService(serviceCfg, deps)
			if err != nil {
				return err
			}
			return localtui.Run(ctx, consoleCfg, service, bus)
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", "color theme (matrix, amber, midnight)")
	cmd.Flags().StringVar(&variant, "variant", "", "profile variant to show")
	return cmd
}

// localConsoleConfig resolves flag overrides against the configured defaults.
func localConsoleConfig(cfg appconfig.Config, theme, variant string) localtui.Config {
	out := localtui.Config{
		Theme:   schema.DefaultTheme,
		Variant: schema.VariantName(cfg.DefaultVariant),
	}
	if name, ok := schema.NormalizeThemeName(cfg.SSH.Theme); ok {
		out.Theme = name
	}
	if name, ok := schema.NormalizeThemeName(theme); ok {
		out.Theme = name
	}
	if variant != "" {
		out.Variant = schema.VariantName(variant)
	}
	return out
}
