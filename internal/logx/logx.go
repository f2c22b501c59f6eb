package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/termfolio/schema"
)

type contextKey int

const (
	sessionKey contextKey = iota
	transportKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithSession annotates the logger with the session id if present.
func WithSession(ctx context.Context, sessionID schema.SessionID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if sessionID != "" {
		if current, ok := ctx.Value(sessionKey).(schema.SessionID); ok && current == sessionID {
			return log
		}
		log = log.With("session", string(sessionID))
	}
	return log
}

// WithVariant annotates the logger with the page variant when available.
func WithVariant(log pslog.Logger, variant schema.VariantName) pslog.Logger {
	if variant != "" {
		log = log.With("variant", string(variant))
	}
	return log
}

// WithTransport annotates the logger with the transport unless the context already carries it.
func WithTransport(ctx context.Context, log pslog.Logger, transport schema.Transport) pslog.Logger {
	if transport == "" {
		return log
	}
	if current, ok := ctx.Value(transportKey).(schema.Transport); ok && current == transport {
		return log
	}
	return log.With("transport", string(transport))
}

// ContextWithSession stores the session marker on the context for log de-duplication.
func ContextWithSession(ctx context.Context, sessionID schema.SessionID) context.Context {
	if ctx == nil || sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// ContextWithTransport stores the transport marker on the context.
func ContextWithTransport(ctx context.Context, transport schema.Transport) context.Context {
	if ctx == nil || transport == "" {
		return ctx
	}
	return context.WithValue(ctx, transportKey, transport)
}

// ContextWithSessionLogger attaches the logger and session marker to the context.
func ContextWithSessionLogger(ctx context.Context, log pslog.Logger, sessionID schema.SessionID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSession(ctx, sessionID)
}

// CopyContextFields copies session/transport markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if id, ok := src.Value(sessionKey).(schema.SessionID); ok && id != "" {
		dst = ContextWithSession(dst, id)
	}
	if transport, ok := src.Value(transportKey).(schema.Transport); ok && transport != "" {
		dst = ContextWithTransport(dst, transport)
	}
	return dst
}
