// Package nullaudio provides an audio device that pulls its callback on a
// real-time ticker and discards or captures the samples. It drives the audio
// clock when no sound card is wanted.
package nullaudio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/user/webmplay/pkg/ports"
)

var (
	// ErrNotOpen is returned when starting a device that was never opened.
	ErrNotOpen = errors.New("nullaudio: device not open")
	// ErrRunning is returned when closing a device that is still started.
	ErrRunning = errors.New("nullaudio: device still running")
)

// DefaultPeriodFrames is the number of frames pulled per callback.
const DefaultPeriodFrames = 1024

// Options configures the device.
type Options struct {
	// PeriodFrames is the callback size in frames.
	PeriodFrames int

	// Capture receives every buffer as little-endian float32 when set.
	Capture io.Writer
}

// Device implements ports.AudioDevice.
type Device struct {
	opts Options

	mu      sync.Mutex
	format  ports.AudioFormat
	cb      ports.AudioCallback
	buf     []float32
	stop    chan struct{}
	done    chan struct{}
	pulled  uint64
	capture error
}

// New creates a device.
func New(opts Options) *Device {
	if opts.PeriodFrames <= 0 {
		opts.PeriodFrames = DefaultPeriodFrames
	}
	return &Device{opts: opts}
}

// Open prepares the device for the given format.
func (d *Device) Open(format ports.AudioFormat, cb ports.AudioCallback) error {
	if format.SampleRate <= 0 || format.Channels <= 0 {
		return fmt.Errorf("invalid format %d Hz x %d", format.SampleRate, format.Channels)
	}
	if cb == nil {
		return fmt.Errorf("nil callback")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return ErrRunning
	}
	d.format = format
	d.cb = cb
	d.buf = make([]float32, d.opts.PeriodFrames*format.Channels)
	return nil
}

// Period returns the wall time one callback covers.
func (d *Device) Period() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.format.SampleRate == 0 {
		return 0
	}
	return time.Duration(d.opts.PeriodFrames) * time.Second / time.Duration(d.format.SampleRate)
}

// Start begins delivering callbacks, one period per tick.
func (d *Device) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cb == nil {
		return ErrNotOpen
	}
	if d.stop != nil {
		return nil
	}

	period := time.Duration(d.opts.PeriodFrames) * time.Second / time.Duration(d.format.SampleRate)
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.run(period, d.stop, d.done)
	return nil
}

func (d *Device) run(period time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.Pull()
		}
	}
}

// Pull runs one callback synchronously. The ticker uses it; tests call it
// directly for deterministic playback.
func (d *Device) Pull() {
	d.mu.Lock()
	cb, buf, channels := d.cb, d.buf, d.format.Channels
	d.mu.Unlock()
	if cb == nil {
		return
	}

	clear(buf)
	cb(buf, d.opts.PeriodFrames, channels)

	d.mu.Lock()
	d.pulled += uint64(d.opts.PeriodFrames)
	if d.opts.Capture != nil && d.capture == nil {
		d.capture = binary.Write(d.opts.Capture, binary.LittleEndian, buf)
	}
	d.mu.Unlock()
}

// Stop halts callbacks and waits for an in-flight callback to return.
func (d *Device) Stop() error {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

// Close releases the device. It reports the first capture write error, if any.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return ErrRunning
	}
	d.cb = nil
	d.buf = nil
	return d.capture
}

// FramesPulled returns the total frames delivered to the callback.
func (d *Device) FramesPulled() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pulled
}

// Ensure Device implements ports.AudioDevice
var _ ports.AudioDevice = (*Device)(nil)
