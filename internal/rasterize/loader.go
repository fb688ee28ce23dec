package rasterize

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"resume-review/internal/shared/telemetry"
)

// State is the lifecycle position of a Loader.
type State int

const (
	Uninitialized State = iota
	Initializing
	Ready
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Loader lazily constructs the rendering engine once per process. Concurrent
// first callers share one in-flight initialization; a failed initialization
// leaves the loader uninitialized so the next call tries again.
type Loader struct {
	// New constructs the engine. A nil New means no engine is available.
	New func(ctx context.Context) (Engine, error)

	group    singleflight.Group
	mu       sync.Mutex
	engine   Engine
	state    State
	attempts atomic.Int64
}

// NewLoader returns a Loader backed by fn.
func NewLoader(fn func(ctx context.Context) (Engine, error)) *Loader {
	return &Loader{New: fn}
}

// Load returns the shared engine, initializing it on first use.
func (l *Loader) Load(ctx context.Context) (Engine, error) {
	if l == nil || l.New == nil {
		return nil, ErrEnvironmentUnavailable
	}
	if e := l.ready(); e != nil {
		return e, nil
	}

	v, err, _ := l.group.Do("engine", func() (any, error) {
		if e := l.ready(); e != nil {
			return e, nil
		}
		return l.initialize(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(Engine), nil
}

// initialize runs the constructor once. A panicking constructor is reported
// as an error and leaves the loader uninitialized.
func (l *Loader) initialize(ctx context.Context) (e Engine, err error) {
	l.setState(Initializing)
	l.attempts.Add(1)

	defer func() {
		if p := recover(); p != nil {
			e, err = nil, fmt.Errorf("rendering engine panicked: %v", p)
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.state = Uninitialized
			telemetry.Error("rasterize.engine_failed", map[string]any{"error": err})
			return
		}
		l.engine = e
		l.state = Ready
		telemetry.Info("rasterize.engine_ready", nil)
	}()

	// The shared initialization must not die with the first caller's request.
	e, err = l.New(context.WithoutCancel(ctx))
	if err == nil && e == nil {
		err = errors.New("engine constructor returned nil")
	}
	return e, err
}

// State reports the current lifecycle state.
func (l *Loader) State() State {
	if l == nil {
		return Uninitialized
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Attempts reports how many initializations have been started.
func (l *Loader) Attempts() int64 {
	if l == nil {
		return 0
	}
	return l.attempts.Load()
}

func (l *Loader) ready() Engine {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.engine
}

func (l *Loader) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}
