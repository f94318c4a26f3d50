package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is returned when the container cannot be used for playback.
	// Load aborts and nothing is published.
	ErrFormat = errors.New("playback: invalid container")

	// ErrNoFrames is returned when the video track holds no frames.
	ErrNoFrames = fmt.Errorf("%w: video track has no frames", ErrFormat)

	// ErrNoTiming is returned when no frame duration, frame rate or segment
	// duration is declared.
	ErrNoTiming = fmt.Errorf("%w: no timing information", ErrFormat)

	// ErrCodecInit is returned when a track's decoder cannot be created.
	// The track is skipped.
	ErrCodecInit = errors.New("playback: codec initialization failed")

	// ErrNoVideo is returned when no video track could be initialized.
	ErrNoVideo = errors.New("playback: no playable video track")

	// ErrFrameDecode marks a single frame that failed to decode.
	// Playback continues with the next frame.
	ErrFrameDecode = errors.New("playback: frame decode failed")

	// ErrAudioHeader is returned when the audio setup headers are malformed.
	// Audio is disabled for the session.
	ErrAudioHeader = errors.New("playback: malformed audio headers")

	// ErrNotLoaded is returned by operations that need a loaded session.
	ErrNotLoaded = errors.New("playback: session not loaded")
)
