package storage

import (
	"context"

	"boolnet/internal/model"
)

// Store persists enumeration sessions and the per-topology consistency
// payloads produced for them.
type Store interface {
	Init(ctx context.Context) error
	SaveSession(ctx context.Context, session model.Session) error
	GetSession(ctx context.Context, id string) (model.Session, bool, error)
	ListSessions(ctx context.Context) ([]model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	SaveTopologyResult(ctx context.Context, result model.TopologyResult) error
	GetTopologyResult(ctx context.Context, sessionID string, index int) (model.TopologyResult, bool, error)
	ListTopologyResults(ctx context.Context, sessionID string) ([]model.TopologyResult, error)
}
