// Package store persists one JSON document per video plus an index
// document, searched across several directories.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/forPelevin/shortsmith/internal/apperr"
	"github.com/forPelevin/shortsmith/internal/domain/videoid"
	"github.com/forPelevin/shortsmith/internal/types"
)

const indexFile = "indice.json"

type Store struct {
	dirs   []string
	locker Locker
	now    func() time.Time
	log    *zap.Logger

	indexMu sync.Mutex
}

type Option func(*Store)

func WithLocker(l Locker) Option { return func(s *Store) { s.locker = l } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// New returns a store writing new records to dirs[0] and reading from every
// dir in order. The first dir is created if missing.
func New(dirs []string, opts ...Option) (*Store, error) {
	if len(dirs) == 0 || dirs[0] == "" {
		return nil, apperr.Config("store", "at least one data directory is required")
	}
	s := &Store{
		dirs:   dirs,
		locker: NewKeyedMutex(),
		now:    time.Now,
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	if err := os.MkdirAll(dirs[0], 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return s, nil
}

// Get loads the record for id from the first directory holding it.
func (s *Store) Get(ctx context.Context, id string) (*types.VideoRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !videoid.Valid(id) {
		return nil, apperr.InvalidInput("store.Get", "invalid video id %q", id)
	}
	rec, _, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperr.NotFound("store.Get", "video %q not found", id)
	}
	return rec, nil
}

// Update runs fn on the current record (a fresh one when absent) and
// persists the result. Updates for one id are serialized by the Locker.
// Returning an error from fn leaves the stored record unchanged.
func (s *Store) Update(ctx context.Context, id string, fn func(*types.VideoRecord) error) (*types.VideoRecord, error) {
	if !videoid.Valid(id) {
		return nil, apperr.InvalidInput("store.Update", "invalid video id %q", id)
	}
	unlock, err := s.locker.Lock(ctx, id)
	if err != nil {
		return nil, apperr.Collaborator("store.Update lock", err)
	}
	defer unlock()

	rec, path, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &types.VideoRecord{VideoID: id}
		path = s.recordPath(s.dirs[0], id)
	}
	if err := fn(rec); err != nil {
		return nil, err
	}
	rec.VideoID = id
	rec.UltimaAtualizacao = s.now().UTC()

	if err := writeJSON(path, rec); err != nil {
		return nil, fmt.Errorf("write record %s: %w", id, err)
	}
	if err := s.updateIndex(id, rec); err != nil {
		// the record is the source of truth; the index is rebuilt by List
		s.log.Warn("update index", zap.String("video_id", id), zap.Error(err))
	}
	return rec, nil
}

// IndexedVideo is one index entry with its identifier.
type IndexedVideo struct {
	VideoID string
	types.IndexEntry
}

// List merges the index of every directory, first-found wins, newest first.
// Directories without an index are scanned for record files.
func (s *Store) List(ctx context.Context) ([]IndexedVideo, error) {
	seen := make(map[string]struct{})
	var out []IndexedVideo
	for _, dir := range s.dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx, err := s.readIndex(dir)
		if err != nil {
			return nil, err
		}
		if idx == nil {
			idx, err = s.scan(dir)
			if err != nil {
				return nil, err
			}
		}
		for id, e := range idx {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, IndexedVideo{VideoID: id, IndexEntry: e})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UltimaAtualizacao.Equal(out[j].UltimaAtualizacao) {
			return out[i].VideoID < out[j].VideoID
		}
		return out[i].UltimaAtualizacao.After(out[j].UltimaAtualizacao)
	})
	return out, nil
}

// State derives stage completion; an unknown id is all false.
func (s *Store) State(ctx context.Context, id string) (types.StageState, error) {
	rec, err := s.Get(ctx, id)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return types.StageState{}, nil
	}
	if err != nil {
		return types.StageState{}, err
	}
	return types.StateOf(rec), nil
}

func (s *Store) load(id string) (*types.VideoRecord, string, error) {
	for _, dir := range s.dirs {
		path := s.recordPath(dir, id)
		b, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("read record %s: %w", path, err)
		}
		var rec types.VideoRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, "", fmt.Errorf("decode record %s: %w", path, err)
		}
		return &rec, path, nil
	}
	return nil, "", nil
}

func (s *Store) recordPath(dir, id string) string {
	return filepath.Join(dir, id+".json")
}

func (s *Store) updateIndex(id string, rec *types.VideoRecord) error {
	s.indexMu.Lock()
	defer s.indexMu.Unlock()

	idx, err := s.readIndex(s.dirs[0])
	if err != nil {
		return err
	}
	if idx == nil {
		// missing or corrupt: rebuild from the records on disk
		if idx, err = s.scan(s.dirs[0]); err != nil {
			return err
		}
	}
	if idx == nil {
		idx = make(map[string]types.IndexEntry)
	}
	idx[id] = indexEntry(rec)
	return writeJSON(filepath.Join(s.dirs[0], indexFile), idx)
}

func (s *Store) readIndex(dir string) (map[string]types.IndexEntry, error) {
	b, err := os.ReadFile(filepath.Join(dir, indexFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	idx := make(map[string]types.IndexEntry)
	if err := json.Unmarshal(b, &idx); err != nil {
		s.log.Warn("corrupt index, rescanning", zap.String("dir", dir), zap.Error(err))
		return nil, nil
	}
	return idx, nil
}

func (s *Store) scan(dir string) (map[string]types.IndexEntry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	idx := make(map[string]types.IndexEntry)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == indexFile || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if !videoid.Valid(id) {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", name, err)
		}
		var rec types.VideoRecord
		if err := json.Unmarshal(b, &rec); err != nil {
			s.log.Warn("skip unreadable record", zap.String("file", name), zap.Error(err))
			continue
		}
		idx[id] = indexEntry(&rec)
	}
	return idx, nil
}

func indexEntry(rec *types.VideoRecord) types.IndexEntry {
	e := types.IndexEntry{URL: rec.URL, UltimaAtualizacao: rec.UltimaAtualizacao}
	if rec.Info != nil {
		e.Title = rec.Info.Title
	}
	return e
}

// writeJSON replaces path atomically.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
