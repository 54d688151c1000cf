package badger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/civiclens/bioindex/core"
	"github.com/civiclens/bioindex/storage"
	"github.com/coder/hnsw"
	"github.com/dgraph-io/badger/v4"
)

// DefaultExactCutoff is the collection size below which unfiltered searches
// always use the exact brute-force path. Above it, unfiltered searches go
// through the HNSW graph and may be approximate.
const DefaultExactCutoff = 200_000

// Index implements storage.Index on BadgerDB. Records are durable in the
// badger store; an in-memory HNSW graph over the same vectors accelerates
// unfiltered searches on large collections. Filtered searches are always
// exact: the filter is applied while scanning, before ranking, so
// filtered-out records never occupy a result slot.
type Index struct {
	backend *Backend
	logger  *slog.Logger

	mu          sync.RWMutex
	graph       *hnsw.Graph[uint64]
	idMap       map[core.ID]uint64 // chunk ID -> graph key
	keyMap      map[uint64]core.ID // graph key -> chunk ID
	nextKey     uint64
	tombstones  int // orphaned graph nodes from replaced or deleted records
	exactCutoff int
	closed      bool
}

var _ storage.Index = (*Index)(nil)

// Option configures an Index.
type Option func(*Index)

// WithExactCutoff overrides the collection size below which unfiltered
// searches stay on the exact brute-force path.
func WithExactCutoff(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.exactCutoff = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) {
		if logger != nil {
			idx.logger = logger
		}
	}
}

// OpenIndex opens the persistent index at the given path, rebuilding the
// in-memory HNSW graph from the stored records.
//
// Returns storage.Index to keep the backend variants interchangeable.
func OpenIndex(filePath string, opts ...Option) (storage.Index, error) {
	backend, err := OpenBackend(filePath, false)
	if err != nil {
		return nil, err
	}
	idx, err := newIndex(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return idx, nil
}

// OpenMemoryIndex opens an in-memory badger index, used in tests.
func OpenMemoryIndex(opts ...Option) (storage.Index, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	idx, err := newIndex(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return idx, nil
}

func newIndex(backend *Backend, opts ...Option) (*Index, error) {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25

	idx := &Index{
		backend:     backend,
		logger:      slog.Default().With("component", "badger-index"),
		graph:       graph,
		idMap:       make(map[core.ID]uint64),
		keyMap:      make(map[uint64]core.ID),
		exactCutoff: DefaultExactCutoff,
	}
	for _, opt := range opts {
		opt(idx)
	}

	if err := idx.rebuildGraph(); err != nil {
		return nil, err
	}
	return idx, nil
}

// rebuildGraph loads every stored vector into the HNSW graph.
// Called once at open; records ingested before a restart stay searchable.
func (idx *Index) rebuildGraph() error {
	loaded := 0
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.EmbeddingRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalEmbeddingRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if len(record.Vector) == 0 {
				continue
			}
			idx.addToGraph(record.ID, record.Vector)
			loaded++
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	if loaded > 0 {
		idx.logger.Info("rebuilt vector graph from store", "records", loaded)
	}
	return nil
}

// addToGraph inserts a vector under a fresh graph key, orphaning any node
// previously mapped to the same chunk ID. coder/hnsw misbehaves when the
// last node is deleted, so replacement is done by tombstoning instead.
// Caller must hold mu.
func (idx *Index) addToGraph(id core.ID, vector []float32) {
	if oldKey, exists := idx.idMap[id]; exists {
		delete(idx.keyMap, oldKey)
		delete(idx.idMap, id)
		idx.tombstones++
	}

	key := idx.nextKey
	idx.nextKey++
	idx.graph.Add(hnsw.MakeNode(key, vector))
	idx.idMap[id] = key
	idx.keyMap[key] = id
}

// Upsert inserts or replaces records keyed by chunk ID.
// The whole batch is written in one transaction.
func (idx *Index) Upsert(ctx context.Context, records []*core.EmbeddingRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return 0, storage.ErrStorageClosed
	}

	now := time.Now().UTC()
	normalized := make([][]float32, len(records))
	for i, record := range records {
		normalized[i] = storage.NormalizeVector(record.Vector)
	}

	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		for i, record := range records {
			stored := *record
			stored.Vector = normalized[i]
			stored.UpdatedAt = now
			stored.InsertedAt = now

			// Preserve the original insertion time on replace.
			key := makeRecordKey(record.ID)
			item, err := tx.Get(key)
			switch err {
			case nil:
				var old *core.EmbeddingRecord
				readErr := item.Value(func(val []byte) error {
					var uerr error
					old, uerr = storage.UnmarshalEmbeddingRecord(val)
					return uerr
				})
				if readErr != nil {
					return readErr
				}
				stored.InsertedAt = old.InsertedAt
			case badger.ErrKeyNotFound:
			default:
				return err
			}

			if err := tx.Set(key, storage.MarshalEmbeddingRecord(&stored)); err != nil {
				return err
			}
			docKey := makeDocIndexKey(record.DocumentID, record.ID)
			if err := tx.Set(docKey, storage.MarshalID(record.ID)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", storage.ErrWriteFailed, err)
	}

	// Only update the graph after the transaction committed.
	for i, record := range records {
		if len(normalized[i]) > 0 {
			idx.addToGraph(record.ID, normalized[i])
		}
	}

	return len(records), nil
}

// DeleteByDocument removes every record belonging to the document.
func (idx *Index) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return 0, storage.ErrStorageClosed
	}

	var removed []core.ID
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialDocIndexKey(documentID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var ids []core.ID
		for iter.Rewind(); iter.Valid(); iter.Next() {
			id, err := chunkIDFromDocIndexKey(iter.Item().Key())
			if err != nil {
				iter.Close()
				return err
			}
			ids = append(ids, id)
		}
		iter.Close()

		for _, id := range ids {
			if err := tx.Delete(makeRecordKey(id)); err != nil {
				return err
			}
			if err := tx.Delete(makeDocIndexKey(documentID, id)); err != nil {
				return err
			}
		}
		removed = ids
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", storage.ErrWriteFailed, err)
	}

	for _, id := range removed {
		if key, exists := idx.idMap[id]; exists {
			delete(idx.keyMap, key)
			delete(idx.idMap, id)
			idx.tombstones++
		}
	}

	return len(removed), nil
}

// Search returns the topK records most similar to the query vector.
func (idx *Index) Search(ctx context.Context, vector []float32, topK int, filter core.Filter) ([]*core.Match, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return nil, storage.ErrStorageClosed
	}
	if topK <= 0 {
		return []*core.Match{}, nil
	}

	query := storage.NormalizeVector(vector)

	if filter.IsZero() && len(idx.idMap) > idx.exactCutoff {
		return idx.searchGraph(query, topK)
	}
	return idx.searchScan(query, topK, filter)
}

// searchScan is the exact path: brute-force cosine over every record
// matching the filter.
func (idx *Index) searchScan(query []float32, topK int, filter core.Filter) ([]*core.Match, error) {
	matches := []*core.Match{}

	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var record *core.EmbeddingRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalEmbeddingRecord(val)
				return err
			})
			if err != nil {
				return err
			}

			// Skip records without embeddings
			if len(record.Vector) == 0 {
				continue
			}
			if !filter.Matches(record) {
				continue
			}

			matches = append(matches, &core.Match{
				Record: record,
				Score:  storage.DotProduct(query, record.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return storage.RankMatches(matches, topK), nil
}

// searchGraph is the approximate path over the HNSW graph, used only for
// unfiltered searches above the exactness cutoff. Tombstoned nodes are
// over-fetched and skipped.
func (idx *Index) searchGraph(query []float32, topK int) ([]*core.Match, error) {
	if idx.graph.Len() == 0 {
		return []*core.Match{}, nil
	}

	nodes := idx.graph.Search(query, topK+idx.tombstones)

	ids := make([]core.ID, 0, topK)
	for _, node := range nodes {
		id, live := idx.keyMap[node.Key]
		if !live {
			continue
		}
		ids = append(ids, id)
		if len(ids) == topK {
			break
		}
	}

	matches := make([]*core.Match, 0, len(ids))
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			item, err := tx.Get(makeRecordKey(id))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}
			var record *core.EmbeddingRecord
			if err := item.Value(func(val []byte) error {
				var uerr error
				record, uerr = storage.UnmarshalEmbeddingRecord(val)
				return uerr
			}); err != nil {
				return err
			}
			matches = append(matches, &core.Match{
				Record: record,
				Score:  storage.DotProduct(query, record.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return storage.RankMatches(matches, topK), nil
}

// Count returns the number of stored records matching the filter.
func (idx *Index) Count(ctx context.Context, filter core.Filter) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return 0, storage.ErrStorageClosed
	}

	// A pure document filter is answered from the document index without
	// touching record values.
	if filter.DocumentID != "" && filter.Subject == "" && filter.Section == 0 {
		return idx.countDocIndex(filter.DocumentID)
	}

	count := 0
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(recordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if filter.IsZero() {
				count++
				continue
			}
			var record *core.EmbeddingRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalEmbeddingRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if filter.Matches(record) {
				count++
			}
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (idx *Index) countDocIndex(documentID string) (int, error) {
	count := 0
	err := idx.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialDocIndexKey(documentID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes the underlying badger store.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.closed {
		return nil
	}
	idx.closed = true
	return idx.backend.Close()
}
