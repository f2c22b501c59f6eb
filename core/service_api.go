package core

import (
	"context"
	"time"

	"pkt.systems/termfolio/schema"
)

// Service is the transport-agnostic API for visitor sessions.
type Service interface {
	OpenSession(ctx context.Context, req schema.OpenSessionRequest) (schema.OpenSessionResponse, error)
	CloseSession(ctx context.Context, req schema.CloseSessionRequest) (schema.CloseSessionResponse, error)
	Execute(ctx context.Context, req schema.ExecuteRequest) (schema.ExecuteResponse, error)
	Complete(ctx context.Context, req schema.CompleteRequest) (schema.CompleteResponse, error)
	NavigateHistory(ctx context.Context, req schema.NavigateHistoryRequest) (schema.NavigateHistoryResponse, error)
	SetInput(ctx context.Context, req schema.SetInputRequest) (schema.SetInputResponse, error)
	GetSnapshot(ctx context.Context, req schema.GetSnapshotRequest) (schema.GetSnapshotResponse, error)
	SelectView(ctx context.Context, req schema.SelectViewRequest) (schema.SelectViewResponse, error)
	WindowControl(ctx context.Context, req schema.WindowControlRequest) (schema.WindowControlResponse, error)
	// ReapIdle closes sessions not touched within ttl and returns how many were closed.
	ReapIdle(ctx context.Context, ttl time.Duration) int
	// Profile returns the resolved profile of a variant.
	Profile(variant schema.VariantName) (schema.Profile, error)
}
