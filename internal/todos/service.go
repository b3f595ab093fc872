// Package todos is the client-side query layer: a cached view of the
// backend list plus mutations that invalidate it.
package todos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/idilsaglam/simpletodo/internal/cache"
	"github.com/idilsaglam/simpletodo/internal/logger"
	"github.com/idilsaglam/simpletodo/internal/metrics"
	"github.com/idilsaglam/simpletodo/internal/model"
)

const listKey = "todos"

var ErrEmptyText = errors.New("todo text is empty")

// Backend is the REST surface the service needs. *api.Client implements it.
type Backend interface {
	List(ctx context.Context) ([]model.Todo, error)
	Create(ctx context.Context, text string) (model.Todo, error)
	Update(ctx context.Context, t model.Todo) (model.Todo, error)
	Delete(ctx context.Context, id int) error
}

type Service struct {
	backend Backend
	cache   cache.Cache
	ttl     time.Duration

	group singleflight.Group
	// gen is bumped on every invalidation; fetches started under an older
	// generation do not write to the cache. mu makes the check and the
	// write one step with respect to Invalidate.
	gen atomic.Uint64
	mu  sync.Mutex
}

func NewService(b Backend, c cache.Cache, ttl time.Duration) *Service {
	return &Service{backend: b, cache: c, ttl: ttl}
}

// List returns the cached list or fetches it. Concurrent misses share one request.
func (s *Service) List(ctx context.Context) ([]model.Todo, error) {
	if todos, ok := s.cached(ctx); ok {
		return todos, nil
	}

	gen := s.gen.Load()
	v, err, _ := s.group.Do(listKey+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		todos, err := s.backend.List(ctx)
		if err != nil {
			return nil, err
		}
		s.store(ctx, gen, todos)
		return todos, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch todos: %w", err)
	}
	return append([]model.Todo(nil), v.([]model.Todo)...), nil
}

// Create adds a new, not yet done item. Blank text is rejected without a request.
func (s *Service) Create(ctx context.Context, text string) (model.Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Todo{}, ErrEmptyText
	}
	created, err := s.backend.Create(ctx, text)
	if err != nil {
		return model.Todo{}, &ActionError{Action: ActionCreate, Err: err}
	}
	s.invalidateAfter(ctx, ActionCreate)
	return created, nil
}

// Toggle flips Done on t, leaving its id and text untouched.
func (s *Service) Toggle(ctx context.Context, t model.Todo) (model.Todo, error) {
	t.Done = !t.Done
	return s.Update(ctx, t)
}

// Update replaces the stored item with t.
func (s *Service) Update(ctx context.Context, t model.Todo) (model.Todo, error) {
	updated, err := s.backend.Update(ctx, t)
	if err != nil {
		return model.Todo{}, &ActionError{Action: ActionUpdate, Err: err}
	}
	s.invalidateAfter(ctx, ActionUpdate)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.backend.Delete(ctx, id); err != nil {
		return &ActionError{Action: ActionDelete, Err: err}
	}
	s.invalidateAfter(ctx, ActionDelete)
	return nil
}

// Invalidate drops the cached list so the next List goes to the backend.
func (s *Service) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen.Add(1)
	metrics.CacheInvalidations.Inc()
	if err := s.cache.Delete(ctx, listKey); err != nil {
		return fmt.Errorf("invalidate %s: %w", listKey, err)
	}
	return nil
}

func (s *Service) invalidateAfter(ctx context.Context, action string) {
	if err := s.Invalidate(ctx); err != nil {
		logger.Warn("cache invalidation failed", logrus.Fields{"action": action, "error": err})
	}
}

func (s *Service) cached(ctx context.Context) ([]model.Todo, bool) {
	b, ok, err := s.cache.Get(ctx, listKey)
	if err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		logger.Warn("cache read failed", logrus.Fields{"key": listKey, "error": err})
		return nil, false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	var todos []model.Todo
	if err := json.Unmarshal(b, &todos); err != nil {
		metrics.CacheLookups.WithLabelValues("error").Inc()
		logger.Warn("cached list unreadable", logrus.Fields{"key": listKey, "error": err})
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, true
}

func (s *Service) store(ctx context.Context, gen uint64, todos []model.Todo) {
	b, err := json.Marshal(todos)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen.Load() != gen {
		return
	}
	if err := s.cache.Set(ctx, listKey, b, s.ttl); err != nil {
		logger.Warn("cache write failed", logrus.Fields{"key": listKey, "error": err})
	}
}
