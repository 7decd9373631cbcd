// Package store holds the persistence backends for catalog snapshots. All
// backends store opaque JSON values under string keys.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"anicatalog/internal/catalog"
)

const (
	DriverMemory   = "memory"
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown store driver")

// Backend is a catalog.Store that owns resources.
type Backend interface {
	catalog.Store
	Close() error
}

type Options struct {
	Driver string
	// Path is the bbolt database file.
	Path string
	// Pool is required for the postgres driver and is not closed by the
	// backend.
	Pool *pgxpool.Pool
}

// Open builds the backend named by opts.Driver. An empty driver is memory.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverBolt:
		return OpenBolt(opts.Path)
	case DriverPostgres:
		if opts.Pool == nil {
			return nil, errors.New("postgres store needs a connection pool")
		}
		return NewPostgres(opts.Pool), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
