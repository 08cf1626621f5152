package model

import (
	"time"

	"github.com/uptrace/bun"
)

// A user's intent to attend an event. At most one row exists per
// (user_id, event_id); the unique constraint is the source of truth.
type Registration struct {
	bun.BaseModel `bun:"table:registrations"`

	ID        string    `bun:"id,pk" json:"id"`                                     // required
	UserID    string    `bun:"user_id,notnull,unique:user_event" json:"userId"`   // required
	EventID   string    `bun:"event_id,notnull,unique:user_event" json:"eventId"` // required
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id" json:"event,omitempty"`
	User  *User  `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}
