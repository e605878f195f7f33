package sink

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/cheevolights/internal/render"
)

type recorder struct {
	mu   sync.Mutex
	seen map[string]render.Frame
}

func newRecorder() *recorder { return &recorder{seen: map[string]render.Frame{}} }

func (r *recorder) Send(_ context.Context, dev render.Device, f render.Frame) {
	r.ObserveFrame(dev, f)
}

func (r *recorder) ObserveFrame(dev render.Device, f render.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[dev.Addr] = append(render.Frame(nil), f...)
}

func (r *recorder) get(addr string) (render.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.seen[addr]
	return f, ok
}

func TestDispatcherSlowDeviceDoesNotBlockOthers(t *testing.T) {
	rec := newRecorder()
	release := make(chan struct{})
	s := Func(func(ctx context.Context, dev render.Device, f render.Frame) {
		if dev.Addr == "slow" {
			<-release
		}
		rec.Send(ctx, dev, f)
	})
	devices := []render.Device{{Addr: "slow", Count: 1}, {Addr: "fast", Count: 2}}
	frames := render.Frames{"slow": render.NewFrame(1), "fast": {{R: 1}, {G: 1}}}

	done := make(chan struct{})
	go func() {
		NewDispatcher(s).SendAll(context.Background(), devices, frames)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, ok := rec.get("fast")
		return ok
	}, time.Second, time.Millisecond)

	select {
	case <-done:
		t.Fatal("SendAll returned before the slow device finished")
	default:
	}
	close(release)
	<-done
	_, ok := rec.get("slow")
	assert.True(t, ok)
}

func TestDispatcherSkipsMissingFrames(t *testing.T) {
	rec := newRecorder()
	devices := []render.Device{{Addr: "a", Count: 1}, {Addr: "b", Count: 1}}
	NewDispatcher(rec).SendAll(context.Background(), devices, render.Frames{"a": render.NewFrame(1)})
	_, okA := rec.get("a")
	_, okB := rec.get("b")
	assert.True(t, okA)
	assert.False(t, okB)
}

func TestRouterPicksDriver(t *testing.T) {
	wled, spi := newRecorder(), newRecorder()
	r := NewRouter("wled")
	r.Handle("wled", wled)
	r.Handle("spi", spi)

	ctx := context.Background()
	r.Send(ctx, render.Device{Addr: "net"}, render.NewFrame(1))
	r.Send(ctx, render.Device{Addr: "local", Driver: "spi"}, render.NewFrame(1))
	r.Send(ctx, render.Device{Addr: "lost", Driver: "dmx"}, render.NewFrame(1))

	_, ok := wled.get("net")
	assert.True(t, ok)
	_, ok = spi.get("local")
	assert.True(t, ok)
	_, ok = wled.get("lost")
	assert.False(t, ok)
}

func TestTeeNotifiesObservers(t *testing.T) {
	primary, watcher := newRecorder(), newRecorder()
	s := Tee(primary, watcher)
	s.Send(context.Background(), render.Device{Addr: "a", Count: 1}, render.Frame{{R: 5}})

	got, ok := watcher.get("a")
	require.True(t, ok)
	assert.Equal(t, render.Frame{{R: 5}}, got)
	_, ok = primary.get("a")
	assert.True(t, ok)

	Discard.Send(context.Background(), render.Device{}, nil)
}
