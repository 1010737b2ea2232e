package repository

import (
	"fmt"

	"github.com/EMDC-Fall-2025/backend-sub000/internal/domain/store"
)

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, store.ErrNotFound)
}

func conflict(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, store.ErrConflict)
}
