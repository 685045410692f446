package domain

import "time"

// Task is a single tracked item owned by exactly one user. Status and
// priority are free-form strings; the owner is stamped at creation and
// never changes.
type Task struct {
	ID        int64
	Text      string
	Status    string
	Priority  string
	OwnerID   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
