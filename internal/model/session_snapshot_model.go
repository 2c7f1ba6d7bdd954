package model

import (
	"time"

	"gorm.io/datatypes"
)

// SessionSnapshot is the durable copy of a live session's full state,
// replaced on every mutation. The in-memory store stays authoritative; this
// row only supports restarts and audits.
type SessionSnapshot struct {
	SessionId string         `gorm:"type:varchar(64);primaryKey"`
	State     datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (SessionSnapshot) TableName() string {
	return "session_snapshots"
}
