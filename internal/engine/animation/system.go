package animation

import (
	"context"
	"runtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-anim/internal/logger"
)

// System drives every registered AnimatorComponent once per frame.
// Registration and updates must happen on the same goroutine;
// UpdateParallel fans the per-component work out internally.
type System struct {
	entries []systemEntry
	index   map[uuid.UUID]int
	ids     map[*AnimatorComponent]uuid.UUID

	playing bool
	workers int
	log     *zap.Logger
}

type systemEntry struct {
	id        uuid.UUID
	component *AnimatorComponent
}

// Option configures a System.
type Option func(*System)

// WithWorkers caps the goroutines UpdateParallel uses. n <= 0 selects
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *System) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		s.workers = n
	}
}

// WithLogger sets the system logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *System) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSystem creates a playing system.
func NewSystem(opts ...Option) *System {
	s := &System{
		index:   make(map[uuid.UUID]int),
		ids:     make(map[*AnimatorComponent]uuid.UUID),
		playing: true,
		workers: runtime.GOMAXPROCS(0),
		log:     logger.Named("animation.system"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a component and returns its handle. Components update in
// registration order. Adding a registered component again returns its
// existing handle.
func (s *System) Add(c *AnimatorComponent) uuid.UUID {
	if id, ok := s.ids[c]; ok {
		return id
	}

	id := uuid.New()
	s.ids[c] = id
	s.index[id] = len(s.entries)
	s.entries = append(s.entries, systemEntry{id: id, component: c})
	s.log.Debug("component added", zap.Stringer("id", id), zap.Int("count", len(s.entries)))
	return id
}

// Remove unregisters a component. Unknown handles are ignored.
func (s *System) Remove(id uuid.UUID) bool {
	pos, ok := s.index[id]
	if !ok {
		return false
	}

	delete(s.ids, s.entries[pos].component)
	copy(s.entries[pos:], s.entries[pos+1:])
	s.entries[len(s.entries)-1] = systemEntry{}
	s.entries = s.entries[:len(s.entries)-1]
	delete(s.index, id)
	for i := pos; i < len(s.entries); i++ {
		s.index[s.entries[i].id] = i
	}

	s.log.Debug("component removed", zap.Stringer("id", id), zap.Int("count", len(s.entries)))
	return true
}

// Get returns the component registered under id, or nil.
func (s *System) Get(id uuid.UUID) *AnimatorComponent {
	if pos, ok := s.index[id]; ok {
		return s.entries[pos].component
	}
	return nil
}

// Len returns the number of registered components.
func (s *System) Len() int { return len(s.entries) }

// SetPlaying pauses or resumes every component.
func (s *System) SetPlaying(playing bool) { s.playing = playing }

// IsPlaying reports whether Update advances components.
func (s *System) IsPlaying() bool { return s.playing }

// Update advances every component by deltaTime seconds, in order.
func (s *System) Update(deltaTime float32) {
	if !s.playing {
		return
	}
	for _, e := range s.entries {
		if e.component != nil {
			e.component.UpdateAnimation(deltaTime)
		}
	}
}

// UpdateParallel is Update spread over at most the configured number of
// goroutines. Each component is touched by exactly one goroutine, while the
// skeletons and clips they share are only read. Components not yet started
// when ctx is cancelled are skipped and ctx.Err() is returned.
func (s *System) UpdateParallel(ctx context.Context, deltaTime float32) error {
	if !s.playing {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, e := range s.entries {
		if gctx.Err() != nil {
			break
		}
		c := e.component
		if c == nil {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c.UpdateAnimation(deltaTime)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
