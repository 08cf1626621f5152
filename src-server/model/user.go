package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	ROLE_USER  = Role("USER")
	ROLE_ADMIN = Role("ADMIN")
)

// Reference copy of the identity provider's user, refreshed on every
// authenticated request so rosters can show public fields.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID        string    `bun:"id,pk,notnull,unique" json:"id"`
	Name      string    `bun:"name" json:"name"`
	Email     string    `bun:"email" json:"email"`
	Image     string    `bun:"image" json:"image,omitempty"`
	Role      Role      `bun:"role,notnull,type:varchar" json:"role"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"createdAt"`
}

func (u *User) Upsert(ctx context.Context, db bun.IDB) error {
	if u.ID == "" {
		return fmt.Errorf("(*User).Upsert: user id is empty")
	}
	if u.Role == "" {
		u.Role = ROLE_USER
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	if _, err := db.
		NewInsert().
		Model(u).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("email = EXCLUDED.email").
		Set("image = EXCLUDED.image").
		Set("role = EXCLUDED.role").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*User).Upsert: %w", err)
	}

	return nil
}
