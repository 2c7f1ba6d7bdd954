package contract

import (
	"context"

	"ai-livecourse-be/internal/model"
)

type SnapshotRepository interface {
	Upsert(ctx context.Context, sessionID string, state []byte) error
	Find(ctx context.Context, sessionID string) (*model.SessionSnapshot, error)
}
