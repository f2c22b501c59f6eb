package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/core"
	"pkt.systems/termfolio/internal/content"
	"pkt.systems/termfolio/internal/logx"
	"pkt.systems/termfolio/internal/stats"
	"pkt.systems/termfolio/internal/termview"
	"pkt.systems/termfolio/schema"
)

// VisitRecorder stores anonymous page view statistics.
type VisitRecorder interface {
	RecordVisit(ctx context.Context, visit stats.Visit) error
}

// Server serves the web page and the session API.
type Server struct {
	cfg      Config
	service  core.Service
	sessions *sessionStore
	hub      *Hub
	visits   VisitRecorder
	ttl      time.Duration
	mount    mount
	themeCSS template.CSS
	logger   pslog.Logger
	page     *template.Template
}

const (
	sessionContextKey = "termfolio.session"
	tokenContextKey   = "termfolio.token"
	heartbeatInterval = 25 * time.Second
)

// NewServer constructs an HTTP server. visits may be nil.
func NewServer(cfg Config, service core.Service, hub *Hub, visits VisitRecorder) *Server {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = "termfolio_session"
	}
	if cfg.InitialBlocks <= 0 {
		cfg.InitialBlocks = 200
	}
	if theme, ok := schema.NormalizeThemeName(string(cfg.Theme)); ok {
		cfg.Theme = theme
	} else {
		cfg.Theme = schema.DefaultTheme
	}
	if hub == nil {
		hub = NewHub(0)
	}
	return &Server{
		cfg:      cfg,
		service:  service,
		sessions: newSessionStore(ttl),
		hub:      hub,
		visits:   visits,
		ttl:      ttl,
		mount:    newMount(cfg.BaseURL, cfg.BasePath),
		themeCSS: themeCSS(),
		page:     pageTemplate,
	}
}

// SetLogger sets the logger used for request logs. Defaults to the request context logger.
func (s *Server) SetLogger(logger pslog.Logger) {
	s.logger = logger
}

// Handler returns the gin engine serving the page and the API.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	if err := engine.SetTrustedProxies(s.cfg.TrustedProxies); err != nil {
		s.log(context.Background()).Warn("http trusted proxies rejected", "err", err)
		_ = engine.SetTrustedProxies(nil)
	}
	engine.SetHTMLTemplate(s.page)
	engine.Use(recovery(s.logger), requestLogging(s.logger))

	root := engine.Group(s.mount.prefix)
	root.GET("/", s.handleIndex)
	root.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	root.StaticFS("/assets", http.FS(assetsFS))

	api := root.Group("/api")
	api.POST("/session", s.handleSession)
	api.GET("/profile", s.handleProfile)
	api.Use(s.requireSession)
	api.GET("/snapshot", s.handleSnapshot)
	api.POST("/execute", s.handleExecute)
	api.POST("/complete", s.handleComplete)
	api.POST("/history", s.handleHistory)
	api.POST("/input", s.handleInput)
	api.POST("/view", s.handleView)
	api.POST("/control", s.handleControl)
	api.GET("/stream", s.handleStream)
	return engine
}

func (s *Server) log(ctx context.Context) pslog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return pslog.Ctx(ctx)
}

// resolveVariant returns the requested variant when it exists, else the default.
func (s *Server) resolveVariant(requested string) schema.VariantName {
	name := schema.NormalizeVariantName(schema.VariantName(requested))
	if name != "" {
		if _, err := s.service.Profile(name); err == nil {
			return name
		}
	}
	return s.cfg.Variant
}

type indexPage struct {
	BaseHref      template.URL
	Theme         schema.ThemeName
	Themes        []schema.ThemeName
	ThemeCSS      template.CSS
	Variant       schema.VariantName
	Prompt        string
	Page          content.GUIPage
	Options       []termview.SelectorOption
	InitialBlocks int
}

func (s *Server) handleIndex(c *gin.Context) {
	variant := s.resolveVariant(c.Query("v"))
	profile, err := s.service.Profile(variant)
	if err != nil {
		writeError(c, err)
		return
	}
	catalog := content.New(profile)
	s.recordVisit(c, variant)
	theme := s.cfg.Theme
	if requested, ok := schema.NormalizeThemeName(c.Query("theme")); ok {
		theme = requested
	}
	c.HTML(http.StatusOK, "index.html", indexPage{
		BaseHref:      template.URL(s.mount.href),
		Theme:         theme,
		Themes:        schema.AvailableThemes(),
		ThemeCSS:      s.themeCSS,
		Variant:       variant,
		Prompt:        catalog.Prompt(),
		Page:          catalog.GUI(),
		Options:       termview.SelectorOptions,
		InitialBlocks: s.cfg.InitialBlocks,
	})
}

func (s *Server) recordVisit(c *gin.Context, variant schema.VariantName) {
	if s.visits == nil || !s.cfg.RecordVisits {
		return
	}
	if c.GetHeader("DNT") == "1" || c.GetHeader("Sec-GPC") == "1" {
		return
	}
	visit := stats.Visit{
		RemoteAddr: c.ClientIP(),
		Transport:  schema.TransportHTTP,
		Variant:    variant,
		Path:       c.Request.URL.Path,
		UserAgent:  c.Request.UserAgent(),
	}
	if err := s.visits.RecordVisit(c.Request.Context(), visit); err != nil {
		s.log(c.Request.Context()).Warn("http visit record failed", "err", err)
	}
}

type profileResponse struct {
	Variant schema.VariantName `json:"variant"`
	Prompt  string             `json:"prompt"`
	Page    content.GUIPage    `json:"page"`
}

func (s *Server) handleProfile(c *gin.Context) {
	variant := s.resolveVariant(c.Query("v"))
	if requested := strings.TrimSpace(c.Query("v")); requested != "" && !strings.EqualFold(requested, string(variant)) {
		writeError(c, schema.ErrUnknownVariant)
		return
	}
	profile, err := s.service.Profile(variant)
	if err != nil {
		writeError(c, err)
		return
	}
	catalog := content.New(profile)
	c.JSON(http.StatusOK, profileResponse{Variant: variant, Prompt: catalog.Prompt(), Page: catalog.GUI()})
}

// handleSession ensures the browser has a cookie session bound to a live
// interpreter session and returns its snapshot.
func (s *Server) handleSession(c *gin.Context) {
	var payload struct {
		Variant string `json:"variant"`
	}
	if c.Request.ContentLength != 0 {
		if err := decodeJSON(c.Request.Body, &payload); err != nil {
			writeError(c, fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
			return
		}
	}
	variant := s.resolveVariant(payload.Variant)
	ctx := logx.ContextWithTransport(c.Request.Context(), schema.TransportHTTP)

	token := s.sessionToken(c)
	entry, ok := s.sessions.get(token)
	if ok && entry.variant != variant {
		if _, err := s.service.CloseSession(ctx, schema.CloseSessionRequest{SessionID: entry.sessionID}); err != nil && !errors.Is(err, schema.ErrSessionNotFound) {
			s.log(ctx).Warn("http session close failed", "err", err)
		}
		s.hub.Drop(entry.sessionID)
		s.sessions.delete(token)
		ok = false
	}
	var sessionID schema.SessionID
	if ok {
		sessionID = entry.sessionID
	}
	opened, err := s.service.OpenSession(ctx, schema.OpenSessionRequest{
		SessionID: sessionID,
		Variant:   variant,
		Transport: schema.TransportHTTP,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		token, entry = s.sessions.create(opened.Session.SessionID, variant)
	}
	c.Set(sessionContextKey, entry)
	s.setCookie(c, token, entry.expiresAt)
	c.JSON(http.StatusOK, gin.H{
		"session": s.limitSnapshot(opened.Session),
		"created": opened.Created,
	})
}

func (s *Server) limitSnapshot(snapshot schema.SessionSnapshot) schema.SessionSnapshot {
	if limit := s.cfg.InitialBlocks; limit > 0 && len(snapshot.Blocks) > limit {
		blocks := make([]schema.Block, 0, limit)
		blocks = append(blocks, snapshot.Blocks[0])
		blocks = append(blocks, snapshot.Blocks[len(snapshot.Blocks)-limit+1:]...)
		snapshot.Blocks = blocks
	}
	return snapshot
}

func (s *Server) setCookie(c *gin.Context, token string, expires time.Time) {
	path := s.mount.prefix
	if path == "" {
		path = "/"
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    token,
		Path:     path,
		HttpOnly: true,
		Secure:   strings.HasPrefix(s.cfg.BaseURL, "https://"),
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

func (s *Server) sessionToken(c *gin.Context) string {
	token, err := c.Cookie(s.cfg.SessionCookie)
	if err != nil {
		return ""
	}
	return token
}

func (s *Server) requireSession(c *gin.Context) {
	token := s.sessionToken(c)
	if token == "" {
		writeError(c, schema.ErrSessionNotFound)
		c.Abort()
		return
	}
	entry, ok := s.sessions.get(token)
	if !ok {
		writeError(c, schema.ErrSessionNotFound)
		c.Abort()
		return
	}
	log := logx.WithVariant(s.log(c.Request.Context()).With("session", string(entry.sessionID), "http_session", entry.id), entry.variant)
	ctx := logx.ContextWithSessionLogger(c.Request.Context(), log, entry.sessionID)
	ctx = logx.ContextWithTransport(ctx, schema.TransportHTTP)
	c.Request = c.Request.WithContext(ctx)
	c.Set(sessionContextKey, entry)
	c.Set(tokenContextKey, token)
	c.Next()
}

func currentSession(c *gin.Context) session {
	value, _ := c.Get(sessionContextKey)
	entry, _ := value.(session)
	return entry
}

func (s *Server) handleSnapshot(c *gin.Context) {
	entry := currentSession(c)
	resp, err := s.service.GetSnapshot(c.Request.Context(), schema.GetSnapshotRequest{
		SessionID: entry.sessionID,
		Limit:     parseInt(c.Query("limit"), s.cfg.InitialBlocks),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": resp.Session})
}

func (s *Server) handleExecute(c *gin.Context) {
	var payload struct {
		Line string `json:"line"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	entry := currentSession(c)
	resp, err := s.service.Execute(c.Request.Context(), schema.ExecuteRequest{SessionID: entry.sessionID, Line: payload.Line})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"outcome":   resp.Outcome,
		"blocks":    resp.Blocks,
		"cleared":   resp.Cleared,
		"switching": resp.Switching,
		"input":     resp.Input,
		"cursor":    resp.Cursor,
	})
}

func (s *Server) handleComplete(c *gin.Context) {
	var payload struct {
		Input string `json:"input"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	entry := currentSession(c)
	resp, err := s.service.Complete(c.Request.Context(), schema.CompleteRequest{SessionID: entry.sessionID, Input: payload.Input})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"input": resp.Input, "matches": resp.Matches, "block": resp.Block})
}

func (s *Server) handleHistory(c *gin.Context) {
	var payload struct {
		Direction string `json:"direction"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	var direction schema.HistoryDirection
	switch strings.ToLower(strings.TrimSpace(payload.Direction)) {
	case "back", "up":
		direction = schema.HistoryBack
	case "forward", "down":
		direction = schema.HistoryForward
	default:
		writeError(c, fmt.Errorf("%w: direction must be back or forward", schema.ErrInvalidRequest))
		return
	}
	entry := currentSession(c)
	resp, err := s.service.NavigateHistory(c.Request.Context(), schema.NavigateHistoryRequest{SessionID: entry.sessionID, Direction: direction})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"input": resp.Input, "cursor": resp.Cursor})
}

func (s *Server) handleInput(c *gin.Context) {
	var payload struct {
		Input string `json:"input"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	entry := currentSession(c)
	if _, err := s.service.SetInput(c.Request.Context(), schema.SetInputRequest{SessionID: entry.sessionID, Input: payload.Input}); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleView(c *gin.Context) {
	var payload struct {
		View string `json:"view"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	view, err := schema.ParseViewMode(payload.View)
	if err != nil {
		writeError(c, err)
		return
	}
	entry := currentSession(c)
	resp, err := s.service.SelectView(c.Request.Context(), schema.SelectViewRequest{SessionID: entry.sessionID, View: view})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": resp.View, "loading": resp.Loading})
}

func (s *Server) handleControl(c *gin.Context) {
	var payload struct {
		Control string `json:"control"`
	}
	if !bindJSON(c, &payload) {
		return
	}
	control, err := schema.ParseWindowControl(payload.Control)
	if err != nil {
		writeError(c, err)
		return
	}
	entry := currentSession(c)
	resp, err := s.service.WindowControl(c.Request.Context(), schema.WindowControlRequest{SessionID: entry.sessionID, Control: control})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"block": resp.Block, "maximized": resp.Maximized, "loading": resp.Loading})
}

// handleStream sends a snapshot, replays history newer than Last-Event-ID and
// then forwards live events until the client goes away.
func (s *Server) handleStream(c *gin.Context) {
	entry := currentSession(c)
	ctx := c.Request.Context()
	log := pslog.Ctx(ctx)

	ch, unsubscribe := s.hub.Subscribe(entry.sessionID)
	defer unsubscribe()

	resp, err := s.service.GetSnapshot(ctx, schema.GetSnapshotRequest{SessionID: entry.sessionID, Limit: s.cfg.InitialBlocks})
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	snapshot := resp.Session
	_ = writeSSEvent(c.Writer, StreamEvent{Type: "snapshot", Snapshot: &snapshot, Timestamp: time.Now()})
	c.Writer.Flush()

	lastID := parseUint(c.GetHeader("Last-Event-ID"))
	if lastID == 0 {
		lastID = parseUint(c.Query("last_id"))
	}
	sent := lastID
	replayCount := 0
	if lastID > 0 {
		replay := s.hub.Replay(entry.sessionID, lastID)
		replayCount = len(replay)
		for _, event := range replay {
			_ = writeSSEvent(c.Writer, event)
			sent = event.Seq
		}
		c.Writer.Flush()
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()
	log.Info("http stream opened", "last_id", lastID, "replay", replayCount, "blocks", len(snapshot.Blocks))
	for {
		select {
		case <-ctx.Done():
			log.Info("http stream closed")
			return
		case <-heartbeat.C:
			_, _ = io.WriteString(c.Writer, ": ping\n\n")
			c.Writer.Flush()
		case event, ok := <-ch:
			if !ok {
				return
			}
			if event.Seq <= sent {
				continue
			}
			_ = writeSSEvent(c.Writer, event)
			sent = event.Seq
			c.Writer.Flush()
		}
	}
}

// RunSweeper expires cookie sessions and idle interpreter sessions until ctx is done.
func (s *Server) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass.
func (s *Server) Sweep(ctx context.Context) {
	log := s.log(ctx)
	expired := s.sessions.sweep()
	for _, sessionID := range expired {
		if _, err := s.service.CloseSession(ctx, schema.CloseSessionRequest{SessionID: sessionID}); err != nil && !errors.Is(err, schema.ErrSessionNotFound) {
			log.Warn("http sweep close failed", "session", string(sessionID), "err", err)
		}
		s.hub.Drop(sessionID)
	}
	reaped := s.service.ReapIdle(ctx, 0)
	pruned := s.hub.Prune(s.ttl)
	if len(expired) > 0 || reaped > 0 || pruned > 0 {
		log.Debug("http sweep", "expired", len(expired), "reaped", reaped, "hub_pruned", pruned, "sessions", s.sessions.len())
	}
}

func bindJSON(c *gin.Context, target any) bool {
	if err := decodeJSON(c.Request.Body, target); err != nil {
		writeError(c, fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
		return false
	}
	return true
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, schema.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrLoading):
		return http.StatusConflict
	case errors.Is(err, schema.ErrInvalidRequest),
		errors.Is(err, schema.ErrInvalidSession),
		errors.Is(err, schema.ErrInvalidView),
		errors.Is(err, schema.ErrInvalidControl),
		errors.Is(err, schema.ErrUnknownVariant):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= 500 {
		pslog.Ctx(c.Request.Context()).Warn("http request failed", "err", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func writeSSEvent(w io.Writer, event StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if event.Seq > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", event.Seq)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, strings.TrimSpace(string(data)))
	return err
}

func parseUint(value string) uint64 {
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
