package store

import (
	"context"
	"errors"

	"nexuserp/backend/internal/domain"
)

// DefaultKey is the slot name the business state lives under.
const DefaultKey = "nexus_erp_data_v2"

var (
	ErrNotFound           = errors.New("not found")
	ErrCorruptState       = errors.New("corrupt business state")
	ErrUnsupportedVersion = errors.New("unsupported business state version")
)

// Repository is the persistence port the service depends on.
type Repository interface {
	Load(ctx context.Context) (domain.BusinessState, error)
	Save(ctx context.Context, state domain.BusinessState) error
}

// Slot is a single-value key-value backend. Get returns ErrNotFound when the
// key has never been written. Put replaces the whole value.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}
