package model

import (
	"time"

	"github.com/avoronkov/flare/internal/domain/enums"
)

// Swipe is one recorded decision by actor about target. At most one row
// exists per ordered (actor, target) pair; a later decision overwrites.
type Swipe struct {
	ActorID   string         `json:"actor_id"`
	TargetID  string         `json:"target_id"`
	Decision  enums.Decision `json:"decision"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
