// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package bioindex

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/civiclens/bioindex/ai"
	"github.com/civiclens/bioindex/ai/openai"
	"github.com/civiclens/bioindex/ingestion"
	"github.com/civiclens/bioindex/search"
	"github.com/civiclens/bioindex/storage"
	storagebadger "github.com/civiclens/bioindex/storage/badger"
	"github.com/civiclens/bioindex/storage/flat"
)

// ErrIndexUnavailable is returned when no index backend can be opened.
// This is fatal at startup; there is no degraded mode without an index.
var ErrIndexUnavailable = errors.New("no index backend available")

// Backend selects the index variant a Database opens.
type Backend int

const (
	// BackendAuto tries the badger variant and falls back to the flat
	// variant when badger cannot be opened.
	BackendAuto Backend = iota
	// BackendBadger forces the durable badger variant.
	BackendBadger
	// BackendFlat forces the flat in-memory variant with a snapshot file.
	BackendFlat
)

// Database owns the index and embedder and hands out ingestion
// controllers and query engines bound to them. The backend variant is
// chosen once, at Open; everything downstream works against the
// storage.Index interface and never branches on the variant.
type Database struct {
	index    storage.Index
	embedder ai.Embedder
	backend  Backend
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	backend  Backend
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithBackend forces a specific index backend variant.
// Default is BackendAuto.
func WithBackend(backend Backend) DatabaseOption {
	return func(o *databaseOptions) {
		o.backend = backend
	}
}

// Open opens the database rooted at filePath, selecting the index backend
// per the options. Returns ErrIndexUnavailable when no backend can be
// opened.
func Open(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		backend:  BackendAuto,
	}
	for _, opt := range opts {
		opt(options)
	}

	logger := slog.Default().With("component", "database")

	index, backend, err := openIndex(filePath, options.backend, logger)
	if err != nil {
		return nil, err
	}

	embedder, err := openai.NewEmbedder(options.aiConfig)
	if err != nil {
		index.Close()
		return nil, err
	}

	return &Database{
		index:    index,
		embedder: embedder,
		backend:  backend,
		logger:   logger,
	}, nil
}

func openIndex(filePath string, backend Backend, logger *slog.Logger) (storage.Index, Backend, error) {
	switch backend {
	case BackendBadger:
		index, err := storagebadger.OpenIndex(filePath)
		if err != nil {
			return nil, backend, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
		}
		return index, BackendBadger, nil

	case BackendFlat:
		index, err := flat.OpenIndex(flatSnapshotPath(filePath))
		if err != nil {
			return nil, backend, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
		}
		return index, BackendFlat, nil

	default:
		index, badgerErr := storagebadger.OpenIndex(filePath)
		if badgerErr == nil {
			return index, BackendBadger, nil
		}
		logger.Warn("badger index unavailable, falling back to flat index", "err", badgerErr)

		index, flatErr := flat.OpenIndex(flatSnapshotPath(filePath))
		if flatErr != nil {
			return nil, backend, fmt.Errorf("%w: badger: %w; flat: %w", ErrIndexUnavailable, badgerErr, flatErr)
		}
		return index, BackendFlat, nil
	}
}

// flatSnapshotPath places the flat variant's snapshot next to where the
// badger store would live. An empty path means memory-only.
func flatSnapshotPath(filePath string) string {
	if filePath == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(filePath), filepath.Base(filePath)+".snapshot")
}

// Backend reports which index variant was opened.
func (db *Database) Backend() Backend {
	return db.backend
}

// Index exposes the underlying index.
func (db *Database) Index() storage.Index {
	return db.index
}

// NewIngestionController creates an ingestion controller bound to this
// database's index and embedder.
func (db *Database) NewIngestionController(opts ...ingestion.Option) (*ingestion.Controller, error) {
	return ingestion.NewController(db.index, db.embedder, opts...)
}

// NewQueryEngine creates a query engine bound to this database's index
// and embedder.
func (db *Database) NewQueryEngine(opts ...search.Option) (*search.Engine, error) {
	return search.NewEngine(db.index, db.embedder, opts...)
}

func (db *Database) Close() error {
	if err := db.index.Close(); err != nil {
		db.logger.Error("error closing index", "err", err)
		return err
	}
	return nil
}
