package termfolio

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/core"
	"pkt.systems/termfolio/httpapi"
	"pkt.systems/termfolio/internal/eventbus"
	"pkt.systems/termfolio/internal/stats"
	"pkt.systems/termfolio/schema"
	"pkt.systems/termfolio/sshserver"
)

// Server composes the HTTP and SSH front ends around one interpreter service.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Service    schema.ServiceConfig
	HTTP       httpapi.Config
	SSH        sshserver.Config
	HubHistory int
	// RecordVisits stores hashed page views and SSH connections in Stats.
	RecordVisits bool
	// SweepInterval is how often expired sessions are dropped.
	SweepInterval time.Duration
	// StatsRetention prunes stored statistics older than this; zero keeps everything.
	StatsRetention time.Duration
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	ServiceDeps core.ServiceDeps
	// Stats records commands and visits when set. The caller owns and closes it.
	Stats *stats.Store
	// HTTPListener and SSHListener replace binding the configured addresses.
	HTTPListener net.Listener
	SSHListener  net.Listener
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
	enableSSH  bool
}

// WithHTTP enables the web page and API.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithSSH enables the SSH server.
func WithSSH() ServerOption {
	return func(o *serverOptions) { o.enableSSH = true }
}

// New constructs a composable termfolio server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableSSH {
		return nil, errors.New("no services enabled")
	}
	normalized, err := schema.NormalizeServiceConfig(cfg.Service)
	if err != nil {
		return nil, err
	}
	cfg.Service = normalized
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	serviceDeps := deps.ServiceDeps
	var hub *httpapi.Hub
	var bus *eventbus.Bus
	if options.enableSSH {
		bus = eventbus.New(serviceDeps.Logger)
	}
	if options.enableHTTP {
		hub = httpapi.NewHub(cfg.HubHistory)
	}
	sinks := make([]core.EventSink, 0, 3)
	if serviceDeps.EventSink != nil {
		sinks = append(sinks, serviceDeps.EventSink)
	}
	if hub != nil {
		sinks = append(sinks, hub)
	}
	if bus != nil {
		sinks = append(sinks, bus)
	}
	switch len(sinks) {
	case 0:
	case 1:
		serviceDeps.EventSink = sinks[0]
	default:
		serviceDeps.EventSink = eventFanout{sinks: sinks}
	}
	if deps.Stats != nil && serviceDeps.Recorder == nil {
		serviceDeps.Recorder = deps.Stats
	}

	service, err := core.NewService(cfg.Service, serviceDeps)
	if err != nil {
		return nil, err
	}

	var visits httpapi.VisitRecorder
	var sshVisits sshserver.VisitRecorder
	if deps.Stats != nil && (cfg.RecordVisits || cfg.HTTP.RecordVisits) {
		visits = deps.Stats
		sshVisits = deps.Stats
		cfg.HTTP.RecordVisits = true
	}

	srv := &compositeServer{
		cfg:          cfg,
		options:      options,
		service:      service,
		stats:        deps.Stats,
		httpListener: deps.HTTPListener,
	}
	if options.enableHTTP {
		if cfg.HTTP.Variant == "" {
			cfg.HTTP.Variant = cfg.Service.DefaultVariant
		}
		srv.httpSrv = httpapi.NewServer(cfg.HTTP, service, hub, visits)
	}
	if options.enableSSH {
		if cfg.SSH.Variant == "" {
			cfg.SSH.Variant = cfg.Service.DefaultVariant
		}
		srv.sshSrv = &sshserver.Server{
			Config:   cfg.SSH,
			Listener: deps.SSHListener,
			Service:  service,
			EventBus: bus,
			Visits:   sshVisits,
		}
	}
	return srv, nil
}

type compositeServer struct {
	cfg          ServerConfig
	options      serverOptions
	service      core.Service
	stats        *stats.Store
	httpSrv      *httpapi.Server
	sshSrv       *sshserver.Server
	httpListener net.Listener
	logger       pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"ssh", s.options.enableSSH,
		"stats", s.stats != nil,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_url", s.cfg.HTTP.BaseURL,
		"http_base_path", s.cfg.HTTP.BasePath,
		"ssh_addr", s.cfg.SSH.Addr,
	)
	if s.httpSrv != nil {
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpListener, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.sshSrv != nil {
		go func() {
			if err := s.sshSrv.ListenAndServe(s.ctx); err != nil {
				log.Error("ssh server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	go s.maintain(s.ctx)
	return nil
}

// maintain expires idle sessions and prunes old statistics until ctx is done.
func (s *compositeServer) maintain(ctx context.Context) {
	if s.httpSrv != nil {
		go s.httpSrv.RunSweeper(ctx, s.cfg.SweepInterval)
	}
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	lastPrune := time.Time{}
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.httpSrv == nil {
				s.service.ReapIdle(ctx, 0)
			}
			if s.stats != nil && s.cfg.StatsRetention > 0 && now.Sub(lastPrune) >= time.Hour {
				lastPrune = now
				if _, err := s.stats.Prune(ctx, s.cfg.StatsRetention); err != nil {
					pslog.Ctx(ctx).Warn("stats prune failed", "err", err)
				}
			}
		}
	}
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	runCtx := s.ctx
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-runCtx.Done():
		log.Info("server stopped")
		return nil
	}
}
