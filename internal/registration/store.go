package registration

import (
	"context"
	"time"
)

// Store persists registrations. Implementations must return ErrNotFound for
// unknown ids and ErrDuplicateID when an insert collides on id.
type Store interface {
	Insert(ctx context.Context, reg *Registration) error
	// List returns every registration in store order. Inline payment bytes
	// are never loaded.
	List(ctx context.Context) ([]Registration, error)
	Get(ctx context.Context, id string) (*Registration, error)
	// UpdateStatus matches by id and sets status and updatedAt in one
	// atomic operation, returning the updated record.
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) (*Registration, error)
	Ping(ctx context.Context) error
	Info() StoreInfo
	Close() error
}

// StoreInfo describes the active backend for health output.
type StoreInfo struct {
	Backend string `json:"backend"`
	Durable bool   `json:"durable"`
}

// FileStore persists payment screenshots.
type FileStore interface {
	Save(ctx context.Context, att *Attachment) (PaymentProof, error)
	Delete(ctx context.Context, proof PaymentProof) error
}
