package model

import (
	"time"

	"github.com/google/uuid"
)

// CourseMaterial is one retrievable content chunk backing the answerer.
type CourseMaterial struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TopicId   string    `gorm:"type:varchar(128);not null;index"`
	Title     string    `gorm:"type:varchar(255)"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (CourseMaterial) TableName() string {
	return "course_materials"
}
