package models

import "time"

// Model is a persisted record. Only run history is stored, so [RunRecord] is
// the sole implementation today.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Repository is the CRUD surface shared by the sqlite repositories.
//
// List takes column filters plus an optional "limit"; keys an implementation
// does not know are ignored.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}
