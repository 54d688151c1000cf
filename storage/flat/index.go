package flat

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/civiclens/bioindex/core"
	"github.com/civiclens/bioindex/storage"
)

// Index implements storage.Index entirely in memory, with an optional
// snapshot file for persistence across restarts. It is the fallback
// variant used when the badger store cannot be opened; rankings are
// bit-for-bit identical to the badger variant because both score with
// storage.DotProduct over storage.NormalizeVector output and order with
// storage.RankMatches.
type Index struct {
	mu       sync.RWMutex
	records  map[core.ID]*core.EmbeddingRecord
	byDoc    map[string]map[core.ID]struct{}
	snapshot string // empty means memory-only
	logger   *slog.Logger
	closed   bool
}

var _ storage.Index = (*Index)(nil)

// OpenIndex opens a flat index backed by the snapshot file at path.
// Records from an existing snapshot are loaded; every successful write
// rewrites the snapshot. An empty path keeps the index memory-only.
//
// Returns storage.Index to keep the backend variants interchangeable.
func OpenIndex(path string) (storage.Index, error) {
	idx := &Index{
		records:  make(map[core.ID]*core.EmbeddingRecord),
		byDoc:    make(map[string]map[core.ID]struct{}),
		snapshot: path,
		logger:   slog.Default().With("component", "flat-index"),
	}

	if path != "" {
		if err := idx.load(); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// load reads the snapshot file, if present. MUS records are
// self-delimiting, so the file is just their concatenation.
func (idx *Index) load() error {
	data, err := os.ReadFile(idx.snapshot)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	loaded := 0
	for offset := 0; offset < len(data); {
		record, n, err := core.EmbeddingRecordMUS.Unmarshal(data[offset:])
		if err != nil {
			return fmt.Errorf("%w: snapshot corrupt at offset %d: %w", storage.ErrSerializationFailed, offset, err)
		}
		offset += n
		idx.insert(&record)
		loaded++
	}

	if loaded > 0 {
		idx.logger.Info("loaded snapshot", "path", idx.snapshot, "records", loaded)
	}
	return nil
}

// persist rewrites the snapshot file atomically (write-then-rename).
// Caller must hold mu.
func (idx *Index) persist() error {
	if idx.snapshot == "" {
		return nil
	}

	size := 0
	for _, record := range idx.records {
		size += core.EmbeddingRecordMUS.Size(*record)
	}
	buf := make([]byte, size)
	offset := 0
	for _, record := range idx.records {
		offset += core.EmbeddingRecordMUS.Marshal(*record, buf[offset:])
	}

	dir := filepath.Dir(idx.snapshot)
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), idx.snapshot)
}

// insert places a record into the maps. Caller must hold mu.
func (idx *Index) insert(record *core.EmbeddingRecord) {
	idx.records[record.ID] = record
	docSet, ok := idx.byDoc[record.DocumentID]
	if !ok {
		docSet = make(map[core.ID]struct{})
		idx.byDoc[record.DocumentID] = docSet
	}
	docSet[record.ID] = struct{}{}
}

// Upsert inserts or replaces records keyed by chunk ID.
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
	inserted := make([]core.ID, 0, len(records))
	replaced := make(map[core.ID]*core.EmbeddingRecord)
	for _, record := range records {
		stored := *record
		stored.Vector = storage.NormalizeVector(record.Vector)
		stored.UpdatedAt = now
		stored.InsertedAt = now
		if old, exists := idx.records[record.ID]; exists {
			stored.InsertedAt = old.InsertedAt
			replaced[record.ID] = old
		} else {
			inserted = append(inserted, record.ID)
		}
		idx.insert(&stored)
	}

	if err := idx.persist(); err != nil {
		// Roll the maps back so a failed call commits nothing.
		for _, old := range replaced {
			idx.insert(old)
		}
		for _, id := range inserted {
			record := idx.records[id]
			delete(idx.records, id)
			delete(idx.byDoc[record.DocumentID], id)
		}
		return 0, fmt.Errorf("%w: %w", storage.ErrWriteFailed, err)
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

	docSet, ok := idx.byDoc[documentID]
	if !ok || len(docSet) == 0 {
		return 0, nil
	}

	removed := make([]*core.EmbeddingRecord, 0, len(docSet))
	for id := range docSet {
		removed = append(removed, idx.records[id])
		delete(idx.records, id)
	}
	delete(idx.byDoc, documentID)

	if err := idx.persist(); err != nil {
		for _, record := range removed {
			idx.insert(record)
		}
		return 0, fmt.Errorf("%w: %w", storage.ErrWriteFailed, err)
	}

	return len(removed), nil
}

// Search computes brute-force cosine similarity against every record
// matching the filter.
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

	matches := []*core.Match{}
	for _, record := range idx.records {
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

	return storage.RankMatches(matches, topK), nil
}

// Count returns the number of stored records matching the filter.
func (idx *Index) Count(ctx context.Context, filter core.Filter) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return 0, storage.ErrStorageClosed
	}

	if filter.IsZero() {
		return len(idx.records), nil
	}
	if filter.DocumentID != "" && filter.Subject == "" && filter.Section == 0 {
		return len(idx.byDoc[filter.DocumentID]), nil
	}

	count := 0
	for _, record := range idx.records {
		if filter.Matches(record) {
			count++
		}
	}
	return count, nil
}

// Close marks the index closed. The snapshot is already durable; there is
// nothing further to flush.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	return nil
}
