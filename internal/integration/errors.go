package integration

import (
	"context"
	"errors"

	"github.com/taskflowhq/taskflow/internal/model"
)

var (
	// ErrAuth means credentials are missing or were rejected by the provider.
	ErrAuth = errors.New("authentication failed")
	// ErrRequest means the provider call failed (network error or non-2xx).
	ErrRequest = errors.New("request failed")
)

// Source pulls candidate tasks from an external provider. Implementations are
// swappable; the sync engine only sees this contract.
type Source interface {
	// Authenticate probes the provider once; no retries.
	Authenticate(ctx context.Context) error
	// FetchTasks enumerates the provider's items and normalizes them. When
	// courseIDs is non-empty only those courses are resolved, skipping any
	// that fail to resolve.
	FetchTasks(ctx context.Context, courseIDs []int64) ([]model.CandidateTask, error)
}
