// Package feedcache stores rendered feeds by key.
package feedcache

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when no feed is stored under a key.
var ErrNotFound = errors.New("feed not found in cache")

// Backend types accepted by Open.
const (
	TypeFile   = "file"
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
)

// Store gets and puts rendered feeds.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Close() error
}

// Open creates the store of the given type. dsn is a directory for file
// stores, a database path for sqlite stores and an address or redis:// URL
// for redis stores.
func Open(kind, dsn string) (Store, error) {
	var (
		store Store
		err   error
	)
	switch kind {
	case TypeFile, "":
		store, err = NewFileStore(dsn)
	case TypeSQLite:
		store, err = NewSQLiteStore(dsn)
	case TypeRedis:
		store, err = NewRedisStore(dsn)
	default:
		return nil, fmt.Errorf("unknown cache type %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
