package models

import "time"

type Restaurant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	OwnerEmail string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}
