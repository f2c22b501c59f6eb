package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/termfolio"
	"pkt.systems/termfolio/core"
	"pkt.systems/termfolio/httpapi"
	"pkt.systems/termfolio/internal/appconfig"
	"pkt.systems/termfolio/internal/content"
	"pkt.systems/termfolio/internal/stats"
	"pkt.systems/termfolio/schema"
	"pkt.systems/termfolio/sshserver"
)

const statsRetention = 365 * 24 * time.Hour

func newServeCmd(cfgPath *string) *cobra.Command {
	var enableHTTP bool
	var enableSSH bool
	var disableAuditTrails bool
	var noBanner bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and SSH front ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !enableHTTP && !enableSSH {
				return errors.New("nothing to serve; enable --http or --ssh")
			}
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(*cfgPath)
			if err != nil {
				return err
			}
			if disableAuditTrails {
				cfg.Logging.DisableAuditTrails = true
			}
			serviceCfg, err := cfg.ServiceConfig()
			if err != nil {
				return err
			}
			if showBanner(noBanner) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), content.New(serviceCfg.Profile).Banner())
			}

			store, err := openStats(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			if store != nil {
				defer func() { _ = store.Close() }()
			}

			serverCfg := termfolio.ServerConfig{
				Service:        serviceCfg,
				HTTP:           toHTTPConfig(cfg.HTTP),
				SSH:            toSSHConfig(cfg.SSH),
				HubHistory:     1000,
				RecordVisits:   cfg.Stats.RecordVisits,
				StatsRetention: statsRetention,
			}
			opts := make([]termfolio.ServerOption, 0, 2)
			if enableHTTP {
				opts = append(opts, termfolio.WithHTTP())
			}
			if enableSSH {
				opts = append(opts, termfolio.WithSSH())
			}
			server, err := termfolio.New(serverCfg, termfolio.ServerDeps{
				ServiceDeps: core.ServiceDeps{Logger: logger},
				Stats:       store,
			}, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if enableHTTP {
				logger.Info("http server listening", "addr", serverCfg.HTTP.Addr)
			}
			if enableSSH {
				logger.Info("ssh server listening", "addr", serverCfg.SSH.Addr)
			}
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().BoolVar(&enableHTTP, "http", true, "serve the web page and API")
	cmd.Flags().BoolVar(&enableSSH, "ssh", true, "serve the SSH terminal")
	cmd.Flags().BoolVar(&disableAuditTrails, "disable-audit-trails", false, "disable audit trail logging for commands")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "disable startup banner")
	return cmd
}

// showBanner reports whether the ASCII banner fits the current log mode.
func showBanner(disabled bool) bool {
	if disabled {
		return false
	}
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_MODE")))
	return mode != "json" && mode != "structured"
}

// openStats opens the statistics store when enabled. A nil store means disabled.
func openStats(ctx context.Context, cfg appconfig.Config, logger pslog.Logger) (*stats.Store, error) {
	if !cfg.Stats.Enabled {
		logger.Info("stats disabled")
		return nil, nil
	}
	store, err := stats.Open(ctx, stats.Options{
		Path:   cfg.Stats.Path,
		Salt:   cfg.Stats.Salt,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

func toHTTPConfig(cfg appconfig.HTTPConfig) httpapi.Config {
	theme, _ := schema.NormalizeThemeName(cfg.Theme)
	return httpapi.Config{
		Addr:            cfg.Addr,
		SessionCookie:   cfg.SessionCookie,
		SessionTTLHours: cfg.SessionTTLHours,
		BaseURL:         cfg.BaseURL,
		BasePath:        cfg.BasePath,
		InitialBlocks:   cfg.InitialBlocks,
		Theme:           theme,
		TrustedProxies:  cfg.TrustedProxies,
	}
}

func toSSHConfig(cfg appconfig.SSHConfig) sshserver.Config {
	theme, _ := schema.NormalizeThemeName(cfg.Theme)
	return sshserver.Config{
		Addr:        cfg.Addr,
		HostKeyPath: cfg.HostKeyPath,
		WebURL:      cfg.WebURL,
		Theme:       theme,
	}
}
