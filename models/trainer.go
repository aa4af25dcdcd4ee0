package models

import "github.com/uptrace/bun"

// Trainer is a login account with a bcrypt-hashed password.
// Trainers are created out-of-band (see cmd/adduser).
type Trainer struct {
	bun.BaseModel `bun:"table:trainers,alias:t"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	Username string `bun:"username,notnull,unique" json:"username"`
	Hash     string `bun:"hash,notnull" json:"-"`
}
