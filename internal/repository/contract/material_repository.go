package contract

import (
	"context"

	"ai-livecourse-be/internal/model"
	"ai-livecourse-be/pkg/rag"
)

type MaterialRepository interface {
	// ListMaterials satisfies rag.MaterialSource; empty topicID lists all.
	ListMaterials(ctx context.Context, topicID string) ([]rag.Document, error)
	Seed(ctx context.Context, materials []*model.CourseMaterial) error
}
