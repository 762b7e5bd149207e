// Package timeline drives the radar frame animation: one current index
// over an ordered frame sequence, with step/seek/play/pause controls.
package timeline

import (
	"sync"
	"time"

	"github.com/Zachdehooge/radar-dashboard/internal/rainviewer"
)

// DefaultTick is the animation advance period while playing.
const DefaultTick = 600 * time.Millisecond

// Snapshot is an immutable view of the controller state, handed to the
// change callback and to anything rendering the timeline.
type Snapshot struct {
	Frame   rainviewer.Frame
	Index   int
	Count   int
	Playing bool
}

// Controller owns the timeline state. All methods are safe for
// concurrent use; the change callback runs outside the internal lock.
type Controller struct {
	mu      sync.Mutex
	frames  []rainviewer.Frame
	index   int
	playing bool
	stop    chan struct{}

	tick     time.Duration
	onChange func(Snapshot)
}

// Option configures a Controller.
type Option func(*Controller)

// WithTick overrides the play interval (tests shrink it).
func WithTick(d time.Duration) Option {
	return func(c *Controller) { c.tick = d }
}

// WithOnChange registers a callback invoked after every state change
// that moves the current frame.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Controller) { c.onChange = fn }
}

// New returns a paused controller with no frames loaded.
func New(opts ...Option) *Controller {
	c := &Controller{tick: DefaultTick}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetFrames replaces the frame sequence and defaults the current index
// to the last (latest) frame. An empty sequence leaves the controller
// with no current frame and stops playback.
func (c *Controller) SetFrames(frames []rainviewer.Frame) {
	c.mu.Lock()
	c.frames = frames
	c.index = len(frames) - 1
	if len(frames) == 0 {
		c.index = 0
		c.stopLocked()
	}
	snap, ok := c.snapshotLocked()
	c.mu.Unlock()
	if ok {
		c.notify(snap)
	}
}

// ShowFrame clamps i into the valid range and makes it current.
// No-op when the frame list is empty.
func (c *Controller) ShowFrame(i int) {
	c.mu.Lock()
	if len(c.frames) == 0 {
		c.mu.Unlock()
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(c.frames) {
		i = len(c.frames) - 1
	}
	c.index = i
	snap, _ := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Seek is a manual jump: it pauses playback, then shows frame i.
func (c *Controller) Seek(i int) {
	c.Pause()
	c.ShowFrame(i)
}

// Step advances the index by delta with wraparound in both directions.
func (c *Controller) Step(delta int) {
	c.mu.Lock()
	n := len(c.frames)
	if n == 0 {
		c.mu.Unlock()
		return
	}
	c.index = ((c.index+delta)%n + n) % n
	snap, _ := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Play starts the repeating advance. Calling it while already playing,
// or with no frames loaded, is a no-op.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing || len(c.frames) == 0 {
		return
	}
	c.playing = true
	c.stop = make(chan struct{})
	go c.run(c.stop)
}

// Pause stops the repeating advance. Idempotent.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// Toggle flips between Playing and Paused.
func (c *Controller) Toggle() {
	c.mu.Lock()
	playing := c.playing
	c.mu.Unlock()
	if playing {
		c.Pause()
	} else {
		c.Play()
	}
}

// Playing reports whether the animation timer is running.
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Current returns the current frame, or ok=false when no frames are loaded.
func (c *Controller) Current() (rainviewer.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return rainviewer.Frame{}, false
	}
	return c.frames[c.index], true
}

// Index returns the current index. Undefined (0) when empty.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Len returns the number of loaded frames.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// Close stops playback. The controller remains usable afterwards.
func (c *Controller) Close() {
	c.Pause()
}

func (c *Controller) stopLocked() {
	if !c.playing {
		return
	}
	c.playing = false
	close(c.stop)
	c.stop = nil
}

func (c *Controller) run(stop chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Step(1)
		}
	}
}

func (c *Controller) snapshotLocked() (Snapshot, bool) {
	if len(c.frames) == 0 {
		return Snapshot{}, false
	}
	return Snapshot{
		Frame:   c.frames[c.index],
		Index:   c.index,
		Count:   len(c.frames),
		Playing: c.playing,
	}, true
}

func (c *Controller) notify(snap Snapshot) {
	if c.onChange != nil {
		c.onChange(snap)
	}
}
