package models

import "github.com/uptrace/bun"

// Course is static reference data naming what a booking teaches.
type Course struct {
	bun.BaseModel `bun:"table:courses,alias:c"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull,unique" json:"name"`
}
