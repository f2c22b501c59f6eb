package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/internal/content"
	"pkt.systems/termfolio/internal/logx"
	"pkt.systems/termfolio/schema"
)

// service implements the core service behavior.
type service struct {
	cfg      schema.ServiceConfig
	catalogs map[schema.VariantName]*content.Catalog
	sink     EventSink
	recorder CommandRecorder
	sleep    SleepFunc
	logger   pslog.Logger
	mu       sync.Mutex
	sessions map[schema.SessionID]*sessionState
}

var nowFunc = time.Now

type sessionState struct {
	term      *Terminal
	variant   schema.VariantName
	transport schema.Transport
	lastSeen  time.Time
	// cancelSwitch aborts an in-flight loader.
	cancelSwitch context.CancelFunc
}

// NewService constructs the core service implementation.
func NewService(cfg schema.ServiceConfig, deps ServiceDeps) (Service, error) {
	normalized, err := schema.NormalizeServiceConfig(cfg)
	if err != nil {
		return nil, err
	}
	cfg = normalized
	catalogs := make(map[schema.VariantName]*content.Catalog, len(cfg.Variants))
	for name := range cfg.Variants {
		profile, _, err := cfg.ResolveProfile(name)
		if err != nil {
			return nil, err
		}
		catalogs[name] = content.New(profile)
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return &service{
		cfg:      cfg,
		catalogs: catalogs,
		sink:     deps.EventSink,
		recorder: deps.Recorder,
		sleep:    sleep,
		logger:   logger,
		sessions: make(map[schema.SessionID]*sessionState),
	}, nil
}

func (s *service) OpenSession(ctx context.Context, req schema.OpenSessionRequest) (schema.OpenSessionResponse, error) {
	if ctx == nil {
		return schema.OpenSessionResponse{}, errors.New("missing context")
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = newSessionID(req.Transport)
	}
	if err := schema.ValidateSessionID(sessionID); err != nil {
		return schema.OpenSessionResponse{}, err
	}
	variant := schema.NormalizeVariantName(req.Variant)
	if variant == "" {
		variant = s.cfg.DefaultVariant
	}
	log := logx.WithVariant(logx.WithTransport(ctx, logx.WithSession(ctx, sessionID), req.Transport), variant)

	s.mu.Lock()
	defer s.mu.Unlock()
	if state := s.sessions[sessionID]; state != nil {
		state.lastSeen = nowFunc()
		log.Debug("service session resumed")
		return schema.OpenSessionResponse{Session: s.snapshotLocked(sessionID, state, 0)}, nil
	}
	catalog := s.catalogs[variant]
	if catalog == nil {
		log.Warn("service session open failed", "err", schema.ErrUnknownVariant)
		return schema.OpenSessionResponse{}, schema.ErrUnknownVariant
	}
	view := req.View
	if view == "" {
		view = s.cfg.InitialView
	}
	if _, err := schema.ParseViewMode(string(view)); err != nil {
		return schema.OpenSessionResponse{}, err
	}
	state := &sessionState{
		term: NewTerminal(catalog, TerminalOptions{
			HistoryMax:  s.cfg.HistoryMax,
			MaxBlocks:   s.cfg.MaxBlocks,
			InitialView: view,
		}),
		variant:   variant,
		transport: req.Transport,
		lastSeen:  nowFunc(),
	}
	s.sessions[sessionID] = state
	log.Info("service session opened", "view", string(view), "sessions", len(s.sessions))
	return schema.OpenSessionResponse{Session: s.snapshotLocked(sessionID, state, 0), Created: true}, nil
}

func (s *service) CloseSession(ctx context.Context, req schema.CloseSessionRequest) (schema.CloseSessionResponse, error) {
	log := logx.WithSession(ctx, req.SessionID)
	s.mu.Lock()
	state := s.sessions[req.SessionID]
	if state != nil {
		delete(s.sessions, req.SessionID)
		if state.cancelSwitch != nil {
			state.cancelSwitch()
		}
	}
	s.mu.Unlock()
	if state == nil {
		return schema.CloseSessionResponse{}, schema.ErrSessionNotFound
	}
	log.Info("service session closed")
	return schema.CloseSessionResponse{}, nil
}

func (s *service) Execute(ctx context.Context, req schema.ExecuteRequest) (schema.ExecuteResponse, error) {
	log := logx.WithSession(ctx, req.SessionID)
	s.mu.Lock()
	state, err := s.getSessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		log.Warn("service execute failed", "err", err)
		return schema.ExecuteResponse{}, err
	}
	if state.term.View() != schema.ViewTerminal {
		s.mu.Unlock()
		log.Debug("service execute rejected", "view", string(state.term.View()))
		return schema.ExecuteResponse{}, schema.ErrInvalidView
	}
	result := state.term.Execute(req.Line)
	input := state.term.Input()
	cursor := state.term.Cursor()
	var keep []schema.Block
	if result.Cleared {
		keep = state.term.Blocks()
	}
	launch := func() {}
	if result.Switch != "" {
		launch = s.startSwitchLocked(ctx, req.SessionID, state, result.Switch)
	}
	variant, transport := state.variant, state.transport
	s.mu.Unlock()

	if result.Outcome == schema.OutcomeIgnored {
		log.Debug("service execute ignored while loading")
		return schema.ExecuteResponse{Outcome: result.Outcome, Input: input, Cursor: cursor}, nil
	}
	if result.Cleared {
		s.emitClear(req.SessionID, keep)
	}
	s.emitOutput(req.SessionID, result.Blocks)
	s.emitInput(req.SessionID, input, cursor)
	if result.Switch != "" {
		s.emitView(schema.ViewEvent{SessionID: req.SessionID, View: schema.ViewTerminal, Loading: true})
		launch()
	}
	if result.Command != "" {
		if !s.cfg.DisableAuditLogging {
			log.Debug("service command executed", "command", result.Command, "outcome", string(result.Outcome), "switch", string(result.Switch))
		}
		s.record(ctx, log, schema.CommandRecord{
			SessionID: req.SessionID,
			Variant:   variant,
			Transport: transport,
			Command:   result.Command,
			Outcome:   result.Outcome,
		})
	}
	return schema.ExecuteResponse{
		Outcome:   result.Outcome,
		Blocks:    result.Blocks,
		Cleared:   result.Cleared,
		Switching: result.Switch,
		Input:     input,
		Cursor:    cursor,
	}, nil
}

func (s *service) Complete(ctx context.Context, req schema.CompleteRequest) (schema.CompleteResponse, error) {
	log := logx.WithSession(ctx, req.SessionID)
	s.mu.Lock()
	state, err := s.getSessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		log.Warn("service complete failed", "err", err)
		return schema.CompleteResponse{}, err
	}
	matches, block := state.term.Complete(req.Input)
	input := state.term.Input()
	cursor := state.term.Cursor()
	s.mu.Unlock()

	if block != nil {
		s.emitOutput(req.SessionID, []schema.Block{*block})
	}
	if len(matches) == 1 {
		s.emitInput(req.SessionID, input, cursor)
	}
	log.Trace("service complete", "prefix", req.Input, "matches", len(matches))
	return schema.CompleteResponse{Input: input, Matches: matches, Block: block}, nil
}

func (s *service) NavigateHistory(ctx context.Context, req schema.NavigateHistoryRequest) (schema.NavigateHistoryResponse, error) {
	log := logx.WithSession(ctx, req.SessionID)
	if req.Direction != schema.HistoryBack && req.Direction != schema.HistoryForward {
		return schema.NavigateHistoryResponse{}, schema.ErrInvalidRequest
	}
	s.mu.Lock()
	state, err := s.getSessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		log.Warn("service history navigate failed", "err", err)
		return schema.NavigateHistoryResponse{}, err
	}
	var input string
	if req.Direction == schema.HistoryBack {
		input = state.term.HistoryBack()
	} else {
		input = state.term.HistoryForward()
	}
	cursor := state.term.Cursor()
	s.mu.Unlock()
	log.Trace("service history navigated", "direction", int(req.Direction), "cursor", cursor)
	return schema.NavigateHistoryResponse{Input: input, Cursor: cursor}, nil
}

func (s *service) SetInput(ctx context.Context, req schema.SetInputRequest) (schema.SetInputResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.getSessionLocked(req.SessionID)
	if err != nil {
		logx.WithSession(ctx, req.SessionID).Warn("service input set failed", "err", err)
		return schema.SetInputResponse{}, err
	}
	state.term.SetInput(req.Input)
	return schema.SetInputResponse{}, nil
}

func (s *service) GetSnapshot(ctx context.Context, req schema.GetSnapshotRequest) (schema.GetSnapshotResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.getSessionLocked(req.SessionID)
	if err != nil {
		return schema.GetSnapshotResponse{}, err
	}
	snapshot := s.snapshotLocked(req.SessionID, state, req.Limit)
	logx.WithSession(ctx, req.SessionID).Trace("service snapshot", "blocks", len(snapshot.Blocks), "view", string(snapshot.View))
	return schema.GetSnapshotResponse{Session: snapshot}, nil
}

func (s *service) SelectView(ctx context.Context, req schema.SelectViewRequest) (schema.SelectViewResponse, error) {
	log := logx.WithSession(ctx, req.SessionID)
	s.mu.Lock()
	state, err := s.getSessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		return schema.SelectViewResponse{}, err
	}
	if state.term.Loading() {
		s.mu.Unlock()
		return schema.SelectViewResponse{}, schema.ErrLoading
	}
	current := state.term.View()
	if !viewChangeAllowed(current, req.View) {
		s.mu.Unlock()
		log.Debug("service view change rejected", "from", string(current), "to", string(req.View))
		return schema.SelectViewResponse{}, schema.ErrInvalidView
	}
	state.term.BeginSwitch()
	launch := s.startSwitchLocked(ctx, req.SessionID, state, req.View)
	s.mu.Unlock()

	s.emitView(schema.ViewEvent{SessionID: req.SessionID, View: current, Loading: true})
	launch()
	log.Info("service view switch started", "from", string(current), "to", string(req.View))
	return schema.SelectViewResponse{View: current, Loading: true}, nil
}

// viewChangeAllowed reports the view changes the selector and the GUI offer.
// The terminal leaves its view only through commands and window controls.
func viewChangeAllowed(from, to schema.ViewMode) bool {
	switch from {
	case schema.ViewSelector:
		return to == schema.ViewTerminal || to == schema.ViewGUI
	case schema.ViewGUI:
		return to == schema.ViewTerminal
	default:
		return false
	}
}

func (s *service) WindowControl(ctx context.Context, req schema.WindowControlRequest) (schema.WindowControlResponse, error) {
	log := logx.WithSession(ctx, req.SessionID)
	if _, err := schema.ParseWindowControl(string(req.Control)); err != nil {
		return schema.WindowControlResponse{}, err
	}
	s.mu.Lock()
	state, err := s.getSessionLocked(req.SessionID)
	if err != nil {
		s.mu.Unlock()
		return schema.WindowControlResponse{}, err
	}
	if state.term.View() != schema.ViewTerminal {
		s.mu.Unlock()
		return schema.WindowControlResponse{}, schema.ErrInvalidView
	}
	var block *schema.Block
	launch := func() {}
	switch req.Control {
	case schema.ControlMinimize:
		b := state.term.Minimize()
		block = &b
	case schema.ControlMaximize:
		b := state.term.Maximize()
		block = &b
	case schema.ControlClose:
		if state.term.Loading() {
			s.mu.Unlock()
			return schema.WindowControlResponse{}, schema.ErrLoading
		}
		state.term.BeginSwitch()
		launch = s.startSwitchLocked(ctx, req.SessionID, state, schema.ViewSelector)
	}
	resp := schema.WindowControlResponse{
		Block:     block,
		Maximized: state.term.Maximized(),
		Loading:   state.term.Loading(),
	}
	s.mu.Unlock()

	if block != nil {
		s.emitOutput(req.SessionID, []schema.Block{*block})
	}
	s.emitView(schema.ViewEvent{SessionID: req.SessionID, View: schema.ViewTerminal, Loading: resp.Loading, Maximized: resp.Maximized})
	launch()
	log.Debug("service window control", "control", string(req.Control))
	return resp, nil
}

func (s *service) ReapIdle(ctx context.Context, ttl time.Duration) int {
	if ttl <= 0 {
		ttl = s.cfg.SessionTTL
	}
	cutoff := nowFunc().Add(-ttl)
	s.mu.Lock()
	reaped := 0
	for id, state := range s.sessions {
		if state.lastSeen.After(cutoff) {
			continue
		}
		if state.cancelSwitch != nil {
			state.cancelSwitch()
		}
		delete(s.sessions, id)
		reaped++
	}
	remaining := len(s.sessions)
	s.mu.Unlock()
	if reaped > 0 {
		pslog.Ctx(ctx).Info("service idle sessions reaped", "reaped", reaped, "remaining", remaining)
	}
	return reaped
}

func (s *service) Profile(variant schema.VariantName) (schema.Profile, error) {
	variant = schema.NormalizeVariantName(variant)
	if variant == "" {
		variant = s.cfg.DefaultVariant
	}
	catalog := s.catalogs[variant]
	if catalog == nil {
		return schema.Profile{}, schema.ErrUnknownVariant
	}
	return catalog.Profile(), nil
}

// startSwitchLocked prepares the loader for a switch already marked with
// BeginSwitch; the returned func starts it and must be called after s.mu is
// released and the loading view event was emitted.
func (s *service) startSwitchLocked(ctx context.Context, sessionID schema.SessionID, state *sessionState, target schema.ViewMode) func() {
	runCtx, cancel := detachRunContext(ctx)
	state.cancelSwitch = cancel
	log := logx.WithSession(runCtx, sessionID)
	return func() { go s.runSwitch(runCtx, cancel, log, sessionID, state, target) }
}

func (s *service) runSwitch(runCtx context.Context, cancel context.CancelFunc, log pslog.Logger, sessionID schema.SessionID, state *sessionState, target schema.ViewMode) {
	defer cancel()
	err := RunLoader(runCtx, s.cfg.LoaderSteps, s.cfg.LoaderHide, s.sleep, func(percent int, active bool) {
		s.mu.Lock()
		if s.sessions[sessionID] == state {
			state.term.SetLoaderPercent(percent)
		}
		s.mu.Unlock()
		s.emitLoader(schema.LoaderEvent{SessionID: sessionID, Percent: percent, Active: active})
	})
	s.mu.Lock()
	if s.sessions[sessionID] != state {
		s.mu.Unlock()
		log.Debug("service view switch dropped", "err", err)
		return
	}
	if err != nil {
		state.term.AbortSwitch()
	} else {
		state.term.FinishSwitch(target)
	}
	state.cancelSwitch = nil
	event := schema.ViewEvent{
		SessionID: sessionID,
		View:      state.term.View(),
		Loading:   false,
		Maximized: state.term.Maximized(),
	}
	s.mu.Unlock()
	if err != nil {
		log.Warn("service view switch aborted", "err", err)
	} else {
		log.Info("service view switched", "view", string(target))
	}
	s.emitView(event)
}

func (s *service) record(ctx context.Context, log pslog.Logger, record schema.CommandRecord) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordCommand(ctx, record); err != nil {
		log.Warn("service command record failed", "err", err)
	}
}

func (s *service) getSessionLocked(sessionID schema.SessionID) (*sessionState, error) {
	if err := schema.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	state := s.sessions[sessionID]
	if state == nil {
		return nil, schema.ErrSessionNotFound
	}
	state.lastSeen = nowFunc()
	return state, nil
}

func (s *service) snapshotLocked(sessionID schema.SessionID, state *sessionState, limit int) schema.SessionSnapshot {
	snapshot := state.term.Snapshot(limit)
	snapshot.SessionID = sessionID
	snapshot.Variant = state.variant
	return snapshot
}

func (s *service) emitOutput(sessionID schema.SessionID, blocks []schema.Block) {
	if s.sink == nil || len(blocks) == 0 {
		return
	}
	s.sink.OnOutput(schema.OutputEvent{
		SessionID: sessionID,
		Blocks:    append([]schema.Block(nil), blocks...),
	})
}

func (s *service) emitClear(sessionID schema.SessionID, keep []schema.Block) {
	if s.sink == nil {
		return
	}
	s.sink.OnClear(schema.ClearEvent{SessionID: sessionID, Keep: keep})
}

func (s *service) emitInput(sessionID schema.SessionID, input string, cursor int) {
	if s.sink == nil {
		return
	}
	s.sink.OnInput(schema.InputEvent{SessionID: sessionID, Input: input, Cursor: cursor})
}

func (s *service) emitView(event schema.ViewEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnView(event)
}

func (s *service) emitLoader(event schema.LoaderEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnLoader(event)
}

func detachRunContext(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.Background()
	if ctx != nil {
		if logger := pslog.Ctx(ctx); logger != nil {
			base = logx.CopyContextFields(pslog.ContextWithLogger(base, logger), ctx)
		}
	}
	return context.WithCancel(base)
}
