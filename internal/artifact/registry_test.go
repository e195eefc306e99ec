package artifact

import (
	"io"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// fakeScheduler captures expiry callbacks so tests fire them by hand instead
// of sleeping.
type fakeScheduler struct {
	fns []func()
}

type fakeTimer struct{ stopped *bool }

func (t fakeTimer) Stop() bool {
	*t.stopped = true
	return true
}

func (s *fakeScheduler) schedule(d time.Duration, fn func()) Timer {
	s.fns = append(s.fns, fn)
	stopped := false
	return fakeTimer{stopped: &stopped}
}

func (s *fakeScheduler) fireAll() {
	for _, fn := range s.fns {
		fn()
	}
}

func newTestRegistry(t *testing.T, fs billy.Filesystem) (*Registry, *fakeScheduler) {
	t.Helper()
	sched := &fakeScheduler{}
	r := NewRegistry(fs, 5*time.Minute, zap.NewNop(), WithScheduler(sched.schedule))
	return r, sched
}

func writeZip(t *testing.T, fs billy.Filesystem, path, content string) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, path, []byte(content), 0o644))
}

func TestOpenStreamsExactBytes(t *testing.T) {
	fs := memfs.New()
	writeZip(t, fs, "demo-1.zip", "zip-bytes-here")
	r, _ := newTestRegistry(t, fs)

	name := r.Register("demo-1.zip")
	assert.Equal(t, "demo-1.zip", name)

	f, size, err := r.Open(name)
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "zip-bytes-here", string(data))
	assert.Equal(t, int64(len(data)), size)

	state, ok := r.State(name)
	require.True(t, ok)
	assert.Equal(t, StateDownloaded, state)
}

func TestOpenAfterExpiryIsNotFound(t *testing.T) {
	fs := memfs.New()
	writeZip(t, fs, "demo-2.zip", "content")
	r, sched := newTestRegistry(t, fs)

	name := r.Register("demo-2.zip")
	sched.fireAll()

	_, _, err := r.Open(name)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fs.Stat("demo-2.zip")
	assert.Error(t, err, "expiry should remove the file")

	state, ok := r.State(name)
	require.True(t, ok)
	assert.Equal(t, StateDeleted, state)
}

func TestExpiryAfterDownloadIsSafe(t *testing.T) {
	fs := memfs.New()
	writeZip(t, fs, "demo-3.zip", "content")
	r, sched := newTestRegistry(t, fs)

	name := r.Register("demo-3.zip")

	f, _, err := r.Open(name)
	require.NoError(t, err)
	_, err = io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// The timer fires after the download completed; it must still clean up
	// without error.
	sched.fireAll()

	state, ok := r.State(name)
	require.True(t, ok)
	assert.Equal(t, StateDeleted, state)
}

func TestRemoveIsIdempotent(t *testing.T) {
	fs := memfs.New()
	writeZip(t, fs, "demo-4.zip", "content")
	r, sched := newTestRegistry(t, fs)

	name := r.Register("demo-4.zip")

	require.NoError(t, r.Remove(name))
	require.NoError(t, r.Remove(name), "second delete must be a no-op")

	// The expiry timer firing after manual removal must also be a no-op.
	sched.fireAll()

	require.NoError(t, r.Remove("never-registered.zip"))
}

func TestOpenRejectsCraftedNames(t *testing.T) {
	fs := memfs.New()
	writeZip(t, fs, "real.zip", "content")
	writeZip(t, fs, "secret.txt", "password")
	r, _ := newTestRegistry(t, fs)
	r.Register("real.zip")

	tests := []string{
		"",
		"real",             // missing extension
		"secret.txt",       // wrong extension
		"../real.zip",      // traversal
		"sub/real.zip",     // separator
		`..\real.zip`,      // windows separator
		"unregistered.zip", // exists nowhere
		"real.zip.zip",     // near miss
	}
	for _, name := range tests {
		_, _, err := r.Open(name)
		assert.ErrorIs(t, err, ErrNotFound, "name %q", name)
	}
}

func TestOpenUnregisteredButOnDisk(t *testing.T) {
	// A file that exists on disk but was never registered must still be
	// NotFound: retrieval is keyed by the registry, not the filesystem.
	fs := memfs.New()
	writeZip(t, fs, "orphan.zip", "content")
	r, _ := newTestRegistry(t, fs)

	_, _, err := r.Open("orphan.zip")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSchedulesExactlyOneTimerPerArtifact(t *testing.T) {
	fs := memfs.New()
	writeZip(t, fs, "demo-5.zip", "content")
	r, sched := newTestRegistry(t, fs)

	name := r.Register("demo-5.zip")
	require.Len(t, sched.fns, 1)

	// Opening (even repeatedly) must not reschedule.
	_, _, err := r.Open(name)
	require.NoError(t, err)
	_, _, err = r.Open(name)
	require.NoError(t, err)
	assert.Len(t, sched.fns, 1)
}

func TestCloseStopsTimers(t *testing.T) {
	defer goleak.VerifyNone(t)

	fs := memfs.New()
	writeZip(t, fs, "demo-6.zip", "content")

	// Real scheduler with a long TTL: without Close the AfterFunc goroutine
	// would outlive the test.
	r := NewRegistry(fs, time.Hour, zap.NewNop())
	r.Register("demo-6.zip")
	r.Close()
}
