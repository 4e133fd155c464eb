package hotreload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-trace/engine/accumulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeFlags(t *testing.T) {
	h := NewHandshake()
	assert.False(t, h.LoadRequested())
	assert.False(t, h.ExitRequested())

	h.RequestLoad()
	assert.True(t, h.LoadRequested())

	h.Acknowledge()
	assert.False(t, h.LoadRequested())
	select {
	case <-h.Acked():
	default:
		t.Fatal("acknowledge did not signal")
	}

	// a second acknowledge never blocks
	h.Acknowledge()
	h.Acknowledge()

	h.RequestExit()
	h.RequestExit()
	assert.True(t, h.ExitRequested())
	select {
	case <-h.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestRequestLoadDropsStaleAck(t *testing.T) {
	h := NewHandshake()
	h.Acknowledge()
	h.RequestLoad()
	select {
	case <-h.Acked():
		t.Fatal("stale acknowledgement survived a new request")
	default:
	}
}

type fakeTarget struct {
	calls atomic.Int32
	err   error
}

func (f *fakeTarget) Reload() error {
	f.calls.Add(1)
	return f.err
}

func TestReloaderIdleWithoutRequest(t *testing.T) {
	target := &fakeTarget{}
	r := NewReloader(NewHandshake(), target)
	attempted, err := r.Poll()
	assert.False(t, attempted)
	assert.NoError(t, err)
	assert.Zero(t, target.calls.Load())
}

func TestReloaderSingleAttemptPerRequest(t *testing.T) {
	h := NewHandshake()
	target := &fakeTarget{}
	acc := accumulation.NewAccumulator()
	var results []bool
	r := NewReloader(h, target, WithAccumulator(acc), WithResultHandler(func(ok bool, _ time.Duration) {
		results = append(results, ok)
	}))

	acc.Tick()
	acc.Tick()
	h.RequestLoad()

	attempted, err := r.Poll()
	assert.True(t, attempted)
	assert.NoError(t, err)
	assert.False(t, h.LoadRequested())
	assert.Equal(t, uint32(0), acc.Count())

	attempted, _ = r.Poll()
	assert.False(t, attempted)
	assert.Equal(t, int32(1), target.calls.Load())
	assert.Equal(t, []bool{true}, results)
}

func TestReloaderFailureClearsFlagAndKeepsCounter(t *testing.T) {
	h := NewHandshake()
	boom := errors.New("compile: unexpected token")
	target := &fakeTarget{err: boom}
	acc := accumulation.NewAccumulator()
	var results []bool
	r := NewReloader(h, target, WithAccumulator(acc), WithResultHandler(func(ok bool, _ time.Duration) {
		results = append(results, ok)
	}))

	acc.Tick()
	h.RequestLoad()
	attempted, err := r.Poll()
	assert.True(t, attempted)
	assert.ErrorIs(t, err, boom)
	assert.False(t, h.LoadRequested())
	assert.Equal(t, uint32(1), acc.Count())
	assert.Equal(t, []bool{false}, results)

	attempted, _ = r.Poll()
	assert.False(t, attempted)
	assert.Equal(t, int32(1), target.calls.Load())
}

func TestNewReloaderPanicsWithoutCollaborators(t *testing.T) {
	assert.Panics(t, func() { NewReloader(nil, &fakeTarget{}) })
	assert.Panics(t, func() { NewReloader(NewHandshake(), nil) })
}

func writeShader(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("// shader\n"), 0o644))
	return path
}

func startWatcher(t *testing.T, w *Watcher) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
	}()
	t.Cleanup(cancel)
	return cancel, done
}

func TestWatcherExitsPromptly(t *testing.T) {
	dir := t.TempDir()
	h := NewHandshake()
	w := NewWatcher(h, []string{writeShader(t, dir, "compute.wgsl")},
		WithPollInterval(20*time.Millisecond), WithNotify(false))

	_, done := startWatcher(t, w)
	time.Sleep(30 * time.Millisecond)
	h.RequestExit()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(20 * time.Millisecond * 5):
		t.Fatal("watcher did not exit within its poll interval")
	}

	assert.ErrorIs(t, w.Run(context.Background()), ErrWatcherStopped)
}

func TestWatcherStopsOnContextCancel(t *testing.T) {
	h := NewHandshake()
	w := NewWatcher(h, nil, WithPollInterval(10*time.Millisecond), WithNotify(false))
	cancel, done := startWatcher(t, w)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("watcher ignored cancellation")
	}
}

func TestWatcherExitsWhileAwaitingAck(t *testing.T) {
	dir := t.TempDir()
	path := writeShader(t, dir, "compute.wgsl")
	h := NewHandshake()
	w := NewWatcher(h, []string{path},
		WithPollInterval(10*time.Millisecond), WithAckInterval(time.Hour), WithNotify(false))

	_, done := startWatcher(t, w)
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))
	require.Eventually(t, h.LoadRequested, time.Second, 5*time.Millisecond)

	h.RequestExit()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher blocked in acknowledge wait")
	}
}

func testWatcherDetectsChange(t *testing.T, notify bool) {
	dir := t.TempDir()
	compute := writeShader(t, dir, "compute.wgsl")
	vertex := writeShader(t, dir, "vertex.wgsl")
	h := NewHandshake()
	w := NewWatcher(h, []string{compute, vertex},
		WithPollInterval(10*time.Millisecond), WithAckInterval(10*time.Millisecond), WithNotify(notify))

	_, _ = startWatcher(t, w)
	time.Sleep(50 * time.Millisecond)
	assert.False(t, h.LoadRequested())

	now := time.Now()
	require.NoError(t, os.Chtimes(vertex, now, now))
	require.Eventually(t, h.LoadRequested, time.Second, 5*time.Millisecond)

	// the render loop handles exactly one attempt per observation
	target := &fakeTarget{}
	r := NewReloader(h, target)
	attempted, err := r.Poll()
	require.True(t, attempted)
	require.NoError(t, err)

	assert.Never(t, h.LoadRequested, 150*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, int32(1), target.calls.Load())
}

func TestWatcherDetectsChangeByPolling(t *testing.T) {
	testWatcherDetectsChange(t, false)
}

func TestWatcherDetectsChangeWithNotify(t *testing.T) {
	testWatcherDetectsChange(t, true)
}

func TestWatcherNormalisesPaths(t *testing.T) {
	dir := t.TempDir()
	path := writeShader(t, dir, "fragment.wgsl")
	w := NewWatcher(NewHandshake(), []string{filepath.Join(dir, ".", "fragment.wgsl")})
	assert.Equal(t, []string{path}, w.Files())
}
