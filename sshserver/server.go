package sshserver

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/core"
	"pkt.systems/termfolio/internal/eventbus"
	"pkt.systems/termfolio/internal/logx"
	"pkt.systems/termfolio/internal/stats"
	"pkt.systems/termfolio/schema"
)

// VisitRecorder stores anonymous connection statistics.
type VisitRecorder interface {
	RecordVisit(ctx context.Context, visit stats.Visit) error
}

// Server exposes the portfolio over SSH. Every visitor is anonymous; the
// login name only selects a page variant when it names one.
type Server struct {
	Config
	Listener net.Listener
	Service  core.Service
	EventBus *eventbus.Bus
	Visits   VisitRecorder
	logger   pslog.Logger
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.Service == nil {
		return errors.New("service is required for SSH")
	}

	signer, created, err := LoadHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}
	s.logger.Info("ssh host key", "path", s.HostKeyPath, "created", created, "fingerprint", ssh.FingerprintSHA256(signer.PublicKey()))

	server := &gliderssh.Server{
		Addr:                       s.Addr,
		Handler:                    s.handleSession,
		PasswordHandler:            s.handlePassword,
		PublicKeyHandler:           s.handlePublicKey,
		KeyboardInteractiveHandler: s.handleKeyboardInteractive,
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()
	s.logger.Info("ssh server listening", "addr", s.listenAddr())

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) listenAddr() string {
	if s.Listener != nil {
		return s.Listener.Addr().String()
	}
	return s.Addr
}

func (s *Server) handlePassword(ctx gliderssh.Context, _ string) bool {
	s.authLog(ctx).Debug("ssh login accepted", "method", "password")
	return true
}

func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	s.authLog(ctx).Debug("ssh login accepted", "method", "publickey", "fingerprint", ssh.FingerprintSHA256(key))
	return true
}

func (s *Server) handleKeyboardInteractive(ctx gliderssh.Context, _ ssh.KeyboardInteractiveChallenge) bool {
	s.authLog(ctx).Debug("ssh login accepted", "method", "keyboard-interactive")
	return true
}

func (s *Server) authLog(ctx gliderssh.Context) pslog.Logger {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	return log.With("user", ctx.User(), "remote", remoteAddr(ctx))
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

// variantFor maps the SSH login name to a page variant, falling back to the
// configured one.
func (s *Server) variantFor(user string) schema.VariantName {
	name := schema.VariantName(strings.ToLower(strings.TrimSpace(user)))
	if name != "" {
		if _, err := s.Service.Profile(name); err == nil {
			return name
		}
	}
	return s.Variant
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(sess.Context())
	}
	remote := sess.RemoteAddr().String()
	log = log.With("remote", remote, "transport", string(schema.TransportSSH))
	if sshSession := sess.Context().SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required, try ssh -t\n")
		return
	}

	ctx := pslog.ContextWithLogger(sess.Context(), log)
	ctx = logx.ContextWithTransport(ctx, schema.TransportSSH)
	variant := s.variantFor(sess.User())
	opened, err := s.Service.OpenSession(ctx, schema.OpenSessionRequest{
		Variant:   variant,
		Transport: schema.TransportSSH,
	})
	if err != nil {
		log.Warn("ssh session rejected", "reason", "open failed", "err", err)
		_, _ = io.WriteString(sess, "session unavailable\n")
		return
	}
	sessionID := opened.Session.SessionID
	log = log.With("session", string(sessionID))
	ctx = logx.ContextWithSessionLogger(ctx, log, sessionID)
	defer func() {
		closeCtx := logx.ContextWithSessionLogger(context.Background(), log, sessionID)
		if _, err := s.Service.CloseSession(closeCtx, schema.CloseSessionRequest{SessionID: sessionID}); err != nil {
			log.Warn("ssh session close failed", "err", err)
		}
	}()

	if s.Visits != nil {
		visit := stats.Visit{RemoteAddr: remote, Transport: schema.TransportSSH, Variant: opened.Session.Variant, UserAgent: pty.Term}
		if err := s.Visits.RecordVisit(ctx, visit); err != nil {
			log.Warn("ssh visit record failed", "err", err)
		}
	}

	log.Info("ssh session opened", "term", pty.Term, "variant", string(opened.Session.Variant))
	var events <-chan eventbus.Event
	if s.EventBus != nil {
		var unsubscribe func()
		events, unsubscribe = s.EventBus.Subscribe(sessionID)
		defer unsubscribe()
	}
	ui := newTerminalSession(sess, s.Service, opened.Session, s.Config, events)
	ui.SetSize(pty.Window.Width, pty.Window.Height)
	_ = ui.Run(ctx, winCh)
	log.Info("ssh session closed", "term", pty.Term)
}
