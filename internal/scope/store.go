// Package scope persists directory permission scopes and global defaults,
// and implements the decision engine that classifies actions against them.
package scope

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/dirgate/dirgate/internal/event"
	"github.com/dirgate/dirgate/internal/logging"
	"github.com/dirgate/dirgate/internal/pathutil"
	"github.com/dirgate/dirgate/internal/storage"
	"github.com/dirgate/dirgate/pkg/types"
)

const (
	scopesDir   = "scopes"
	defaultsKey = "defaults"
)

var ErrInvalidMode = errors.New("invalid capability mode")

// Store persists scopes and defaults through the JSON storage layer and
// keeps an in-memory cache. External edits to the data files are picked up
// by a filesystem watcher.
type Store struct {
	storage *storage.Storage
	log     zerolog.Logger

	mu       sync.RWMutex
	scopes   map[string]types.Scope
	defaults types.CapabilityModes
}

// NewStore creates a Store and loads existing records from disk.
func NewStore(store *storage.Storage) (*Store, error) {
	s := &Store{
		storage: store,
		log:     logging.Component("scope"),
		scopes:  make(map[string]types.Scope),
	}
	if err := s.reload(context.Background(), false); err != nil {
		return nil, err
	}
	return s, nil
}

// GetScopes returns all persisted scopes ordered by directory path.
func (s *Store) GetScopes(ctx context.Context) ([]types.Scope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Scope, 0, len(s.scopes))
	for _, sc := range s.scopes {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DirectoryPath != out[j].DirectoryPath {
			return out[i].DirectoryPath < out[j].DirectoryPath
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetDefaults returns the global fallback modes.
func (s *Store) GetDefaults(ctx context.Context) (types.CapabilityModes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults, nil
}

// SetDefaults replaces the global fallback modes.
func (s *Store) SetDefaults(ctx context.Context, modes types.CapabilityModes) error {
	if err := validModes(modes); err != nil {
		return err
	}

	if err := s.storage.Put(ctx, []string{defaultsKey}, modes); err != nil {
		return err
	}

	s.mu.Lock()
	s.defaults = modes
	s.mu.Unlock()

	event.Publish(event.Event{
		Type: event.DefaultsUpdated,
		Data: event.DefaultsUpdatedData{Defaults: modes},
	})
	return nil
}

// SeedDefaults installs config-supplied defaults when no defaults record
// has been persisted yet. Persisted defaults always win over config.
func (s *Store) SeedDefaults(modes *types.CapabilityModes) error {
	if modes == nil {
		return nil
	}
	ctx := context.Background()
	if s.storage.Exists(ctx, []string{defaultsKey}) {
		return nil
	}
	return s.SetDefaults(ctx, *modes)
}

// UpsertScope writes the four modes for a directory. If a scope already
// exists at the same normalized path its record is replaced in place,
// otherwise a new scope is created. Returns the scope ID.
func (s *Store) UpsertScope(ctx context.Context, directoryPath string, modes types.CapabilityModes) (string, error) {
	dir := pathutil.NormalizePath(directoryPath)
	if dir == "" {
		return "", fmt.Errorf("empty directory path")
	}
	if err := validModes(modes); err != nil {
		return "", err
	}

	s.mu.Lock()
	sc := s.findByPathLocked(dir)
	if sc == nil {
		sc = &types.Scope{
			ID:            ulid.Make().String(),
			DirectoryPath: dir,
			CreatedAt:     time.Now().UTC(),
		}
	}
	sc.CapabilityModes = modes
	s.mu.Unlock()

	// Persist before touching the cache: a failed write must not leave a
	// grant active in memory that the caller was told does not exist.
	if err := s.storage.Put(ctx, []string{scopesDir, sc.ID}, sc); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.scopes[sc.ID] = *sc
	s.mu.Unlock()

	event.Publish(event.Event{
		Type: event.ScopeUpdated,
		Data: event.ScopeUpdatedData{Scope: sc},
	})
	return sc.ID, nil
}

// DeleteScope removes a scope by ID. Missing IDs are not an error.
func (s *Store) DeleteScope(ctx context.Context, id string) error {
	if err := s.storage.Delete(ctx, []string{scopesDir, id}); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.scopes, id)
	s.mu.Unlock()

	event.Publish(event.Event{
		Type: event.ScopeDeleted,
		Data: event.ScopeDeletedData{ID: id},
	})
	return nil
}

// findByPathLocked returns the scope stored at an exact normalized path.
func (s *Store) findByPathLocked(dir string) *types.Scope {
	for _, sc := range s.scopes {
		if sc.DirectoryPath == dir {
			found := sc
			return &found
		}
	}
	return nil
}

// reload re-reads everything from disk. When external is true and the
// result differs from the cache, a scope.updated event is published so
// presentation layers refresh.
func (s *Store) reload(ctx context.Context, external bool) error {
	scopes := make(map[string]types.Scope)
	err := s.storage.Scan(ctx, []string{scopesDir}, func(key string, data json.RawMessage) error {
		var sc types.Scope
		if err := json.Unmarshal(data, &sc); err != nil {
			s.log.Warn().Str("scope", key).Err(err).Msg("skipping unreadable scope record")
			return nil
		}
		if sc.ID == "" {
			sc.ID = key
		}
		scopes[sc.ID] = sc
		return nil
	})
	if err != nil {
		return err
	}

	defaults := types.DefaultModes()
	if err := s.storage.Get(ctx, []string{defaultsKey}, &defaults); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	s.mu.Lock()
	changed := !reflect.DeepEqual(s.scopes, scopes) || s.defaults != defaults
	s.scopes = scopes
	s.defaults = defaults
	s.mu.Unlock()

	if external && changed {
		s.log.Info().Int("scopes", len(scopes)).Msg("reloaded scopes after external change")
		event.Publish(event.Event{
			Type: event.ScopeUpdated,
			Data: event.ScopeUpdatedData{External: true},
		})
	}
	return nil
}

// Watch reloads the store whenever its data files change on disk (another
// dirgate process, or a manual edit). The watcher is re-established with
// exponential backoff if it fails. Returns when ctx is done.
func (s *Store) Watch(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry forever

	for {
		err := s.watch(ctx)
		if ctx.Err() != nil {
			return
		}
		wait := bo.NextBackOff()
		s.log.Warn().Err(err).Dur("retryIn", wait).Msg("scope watcher stopped, restarting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (s *Store) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	base := s.storage.BasePath()
	if err := os.MkdirAll(filepath.Join(base, scopesDir), 0755); err != nil {
		return err
	}
	if err := watcher.Add(base); err != nil {
		return err
	}
	if err := watcher.Add(filepath.Join(base, scopesDir)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher event channel closed")
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := s.reload(ctx, true); err != nil {
				s.log.Error().Err(err).Msg("failed to reload scopes")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			return err
		}
	}
}

func validModes(modes types.CapabilityModes) error {
	for _, m := range []types.Mode{modes.ContentScan, modes.Modification, modes.OCR, modes.Indexing} {
		if !m.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidMode, m)
		}
	}
	return nil
}
