// Package artifact manages the time-boxed lifecycle of built archives.
// Each artifact moves through Built → Available → {Downloaded, Expired} →
// Deleted. Exactly one expiry timer is scheduled per artifact, at
// registration, and never rescheduled; deletion is idempotent so the timer
// firing after a completed download (or after manual cleanup) is a no-op.
package artifact

import (
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"
)

// State is the lifecycle position of one artifact.
type State int

const (
	StateAvailable State = iota
	StateDownloaded
	StateExpired
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateAvailable:
		return "available"
	case StateDownloaded:
		return "downloaded"
	case StateExpired:
		return "expired"
	case StateDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// Timer is the stoppable handle returned by the scheduler.
type Timer interface {
	Stop() bool
}

// Scheduler schedules fn to run once after d. Injected so lifecycle tests
// run without wall-clock sleeps; the default is time.AfterFunc.
type Scheduler func(d time.Duration, fn func()) Timer

type realTimer struct{ *time.Timer }

func defaultScheduler(d time.Duration, fn func()) Timer {
	return realTimer{time.AfterFunc(d, fn)}
}

type entry struct {
	path      string
	state     State
	expiresAt time.Time
	timer     Timer
}

// Registry tracks built artifacts by their generated zip file name and owns
// their expiry.
type Registry struct {
	fs       billy.Filesystem
	ttl      time.Duration
	clock    func() time.Time
	schedule Scheduler
	log      *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithScheduler overrides timer creation.
func WithScheduler(s Scheduler) Option {
	return func(r *Registry) { r.schedule = s }
}

// NewRegistry creates a Registry that deletes artifacts from fs once ttl has
// elapsed after registration.
func NewRegistry(fs billy.Filesystem, ttl time.Duration, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		fs:       fs,
		ttl:      ttl,
		clock:    time.Now,
		schedule: defaultScheduler,
		log:      logger,
		entries:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register takes ownership of a built archive. It records the artifact under
// its base file name, marks it Available, and schedules its single expiry
// timer. Returns the name retrieval requests must use.
func (r *Registry) Register(zipPath string) string {
	name := path.Base(zipPath)

	r.mu.Lock()
	defer r.mu.Unlock()

	e := &entry{
		path:      zipPath,
		state:     StateAvailable,
		expiresAt: r.clock().Add(r.ttl),
	}
	e.timer = r.schedule(r.ttl, func() { r.expire(name) })
	r.entries[name] = e

	r.log.Info("artifact registered",
		zap.String("name", name),
		zap.Time("expires_at", e.expiresAt))
	return name
}

// Open validates the requested name and returns the artifact's content for
// streaming, along with its size. The name must be a bare file name with the
// zip extension and must be registered; anything else is ErrNotFound no
// matter what exists on disk. A successful open marks the artifact
// Downloaded, but deletion remains driven solely by the expiry timer so a
// client can retry a dropped connection.
func (r *Registry) Open(name string) (billy.File, int64, error) {
	if !validName(name) {
		return nil, 0, ErrNotFound
	}

	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok || (e.state != StateAvailable && e.state != StateDownloaded) {
		r.mu.Unlock()
		return nil, 0, ErrNotFound
	}
	zipPath := e.path
	r.mu.Unlock()

	info, err := r.fs.Stat(zipPath)
	if err != nil {
		return nil, 0, ErrNotFound
	}
	f, err := r.fs.Open(zipPath)
	if err != nil {
		return nil, 0, ErrNotFound
	}

	r.mu.Lock()
	if e, ok := r.entries[name]; ok && e.state == StateAvailable {
		e.state = StateDownloaded
	}
	r.mu.Unlock()

	return f, info.Size(), nil
}

// State reports the lifecycle state of a registered artifact.
func (r *Registry) State(name string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// expire is the timer callback: Available/Downloaded → Expired → Deleted.
func (r *Registry) expire(name string) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok || e.state == StateDeleted {
		r.mu.Unlock()
		return
	}
	e.state = StateExpired
	zipPath := e.path
	r.mu.Unlock()

	if err := r.removeFile(zipPath); err != nil {
		r.log.Warn("artifact cleanup failed",
			zap.String("name", name),
			zap.Error(err))
		return
	}

	r.mu.Lock()
	if e, ok := r.entries[name]; ok {
		e.state = StateDeleted
	}
	r.mu.Unlock()

	r.log.Info("artifact expired", zap.String("name", name))
}

// Remove deletes the artifact's file immediately. Removing an unknown name
// or an already-deleted file is a no-op, never an error: the expiry timer
// may race a manual cleanup and both must be safe.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	zipPath := e.path
	e.state = StateDeleted
	r.mu.Unlock()

	return r.removeFile(zipPath)
}

// removeFile is the idempotent deletion primitive shared by expiry and
// manual removal.
func (r *Registry) removeFile(zipPath string) error {
	if err := r.fs.Remove(zipPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close stops every pending expiry timer. Artifacts already on disk are left
// in place; a restarted process gets a fresh registry and fresh deadlines.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}

// validName accepts only bare "<something>.zip" file names. Separators and
// traversal segments are rejected before any filesystem access, so crafted
// names cannot probe outside the storage directory.
func validName(name string) bool {
	if name == "" || !strings.HasSuffix(name, ".zip") {
		return false
	}
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return false
	}
	return true
}
