package implementation

import (
	"context"

	"ai-livecourse-be/internal/model"
	"ai-livecourse-be/internal/repository/contract"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SnapshotRepositoryImpl struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) contract.SnapshotRepository {
	return &SnapshotRepositoryImpl{db: db}
}

func (r *SnapshotRepositoryImpl) Upsert(ctx context.Context, sessionID string, state []byte) error {
	m := &model.SessionSnapshot{
		SessionId: sessionID,
		State:     datatypes.JSON(state),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "updated_at"}),
	}).Create(m).Error
}

func (r *SnapshotRepositoryImpl) Find(ctx context.Context, sessionID string) (*model.SessionSnapshot, error) {
	var m model.SessionSnapshot
	if err := r.db.WithContext(ctx).First(&m, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
