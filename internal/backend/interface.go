package backend

import (
	"context"

	"nrsnotify/internal/ports"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadyCheck reports whether a backend dependency can serve requests.
type ReadyCheck func(ctx context.Context) error

// BackendResult contains the chosen watermark store and its companions.
type BackendResult struct {
	Type BackendType

	// Store is nil for the cookie backend, where watermarks travel with
	// each request instead of living in the process.
	Store ports.WatermarkStore

	// Publisher is nil when AMQP is not configured or unreachable.
	Publisher ports.WatermarkPublisher

	ReadyChecks map[string]ReadyCheck
	Cleanup     CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Watermark events, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	CookieBackend BackendType = "cookie"
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CookieBackend, MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
