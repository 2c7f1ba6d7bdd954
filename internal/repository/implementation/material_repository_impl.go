package implementation

import (
	"context"

	"ai-livecourse-be/internal/model"
	"ai-livecourse-be/internal/repository/contract"
	"ai-livecourse-be/pkg/rag"

	"gorm.io/gorm"
)

type MaterialRepositoryImpl struct {
	db *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) contract.MaterialRepository {
	return &MaterialRepositoryImpl{db: db}
}

func (r *MaterialRepositoryImpl) ListMaterials(ctx context.Context, topicID string) ([]rag.Document, error) {
	query := r.db.WithContext(ctx).Model(&model.CourseMaterial{}).Order("created_at")
	if topicID != "" {
		query = query.Where("topic_id = ?", topicID)
	}

	var rows []model.CourseMaterial
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	docs := make([]rag.Document, len(rows))
	for i, m := range rows {
		docs[i] = rag.Document{
			ID:      m.Id.String(),
			TopicID: m.TopicId,
			Title:   m.Title,
			Text:    m.Content,
		}
	}
	return docs, nil
}

func (r *MaterialRepositoryImpl) Seed(ctx context.Context, materials []*model.CourseMaterial) error {
	if len(materials) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(materials).Error
}
