// Package config provides configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/user/webmplay/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Config represents the full configuration for webmplay.
type Config struct {
	// Decoding and playback
	Threads int     `yaml:"threads"`
	Loop    bool    `yaml:"loop"`
	Volume  float64 `yaml:"volume"`
	TickMs  int     `yaml:"tick_ms"`

	// Audio output
	Audio AudioConfig `yaml:"audio"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Debug dumps
	Debug            bool   `yaml:"debug"`
	DebugDir         string `yaml:"debug_dir"`
	DebugFrameStride int    `yaml:"debug_frame_stride"`

	// Snapshot rendering
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Test stream generation
	Generate GenerateConfig `yaml:"generate"`
}

// AudioConfig configures the audio device.
type AudioConfig struct {
	Enabled      bool   `yaml:"enabled"`
	PeriodFrames int    `yaml:"period_frames"`
	CapturePath  string `yaml:"capture"`
}

// SnapshotConfig configures still-frame rendering.
type SnapshotConfig struct {
	Width           int    `yaml:"width"`
	Overlay         bool   `yaml:"overlay"`
	Format          string `yaml:"format"`
	Quality         int    `yaml:"quality"`
	FontPath        string `yaml:"font_path"`
	TextColor       string `yaml:"text_color"`
	BackgroundColor string `yaml:"background_color"`
}

// GenerateConfig configures the test stream generator.
type GenerateConfig struct {
	Width            int     `yaml:"width"`
	Height           int     `yaml:"height"`
	FPS              float64 `yaml:"fps"`
	DurationMs       int     `yaml:"duration_ms"`
	KeyframeInterval int     `yaml:"keyframe_interval"`
	Quality          string  `yaml:"quality"`
	Bitrate          int     `yaml:"bitrate"`
	Container        string  `yaml:"container"`
	Workers          int     `yaml:"workers"`
	BackgroundColor  string  `yaml:"background_color"`
	AccentColor      string  `yaml:"accent_color"`
}

// QualityPreset represents an encoder quality preset name.
type QualityPreset string

const (
	QualityLow    QualityPreset = "low"
	QualityMedium QualityPreset = "medium"
	QualityHigh   QualityPreset = "high"
)

// QuantizerFor returns the minimum quantizer (0-63, lower is better) for a preset.
// Unknown presets use medium.
func QuantizerFor(preset QualityPreset) int {
	switch preset {
	case QualityLow:
		return 40
	case QualityHigh:
		return 15
	default:
		return 28
	}
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Threads: 8,
		Volume:  1.0,
		TickMs:  10,

		Audio: AudioConfig{
			Enabled:      true,
			PeriodFrames: 1024,
		},

		LogLevel: "info",

		DebugDir:         "./debug",
		DebugFrameStride: 30,

		Snapshot: SnapshotConfig{
			Overlay:         true,
			Format:          "png",
			Quality:         90,
			TextColor:       "#ffffff",
			BackgroundColor: "#000000",
		},

		Generate: GenerateConfig{
			Width:            320,
			Height:           240,
			FPS:              30,
			DurationMs:       3000,
			KeyframeInterval: 30,
			Quality:          string(QualityMedium),
			Container:        "webm",
			BackgroundColor:  "#1a1a2e",
			AccentColor:      "#4ade80",
		},
	}
}

// LoadFromFile loads configuration from a YAML file on top of Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// ErrInvalid is returned by Validate for values that cannot be clamped.
var ErrInvalid = errors.New("config: invalid value")

// Validate normalises out-of-range values and rejects unusable ones.
func (c *Config) Validate() error {
	if c.Threads < 1 {
		c.Threads = 1
	}
	c.Volume = min(max(c.Volume, 0), 1)
	if c.TickMs < 1 {
		c.TickMs = 1
	}
	if c.Audio.PeriodFrames < 64 {
		c.Audio.PeriodFrames = 64
	}
	if c.DebugFrameStride < 1 {
		c.DebugFrameStride = 1
	}
	c.LogLevel = ports.ParseLogLevel(c.LogLevel).String()

	if c.Snapshot.Width < 0 {
		return fmt.Errorf("%w: snapshot.width %d", ErrInvalid, c.Snapshot.Width)
	}
	switch strings.ToLower(c.Snapshot.Format) {
	case "png", "jpeg", "jpg":
		c.Snapshot.Format = strings.ToLower(c.Snapshot.Format)
	default:
		return fmt.Errorf("%w: snapshot.format %q", ErrInvalid, c.Snapshot.Format)
	}
	c.Snapshot.Quality = min(max(c.Snapshot.Quality, 1), 100)

	g := &c.Generate
	if g.Width < 16 || g.Height < 16 {
		return fmt.Errorf("%w: generate size %dx%d", ErrInvalid, g.Width, g.Height)
	}
	if g.FPS <= 0 || g.FPS > 240 {
		return fmt.Errorf("%w: generate.fps %g", ErrInvalid, g.FPS)
	}
	if g.DurationMs <= 0 {
		return fmt.Errorf("%w: generate.duration_ms %d", ErrInvalid, g.DurationMs)
	}
	if g.KeyframeInterval < 0 {
		g.KeyframeInterval = 0
	}
	switch QualityPreset(g.Quality) {
	case QualityLow, QualityMedium, QualityHigh:
	default:
		g.Quality = string(QualityMedium)
	}
	switch strings.ToLower(g.Container) {
	case "webm", "mp4":
		g.Container = strings.ToLower(g.Container)
	default:
		return fmt.Errorf("%w: generate.container %q", ErrInvalid, g.Container)
	}
	return nil
}

// Tick returns the update interval.
func (c Config) Tick() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// ImageFormat returns the snapshot encoding format.
func (c Config) ImageFormat() ports.ImageFormat {
	if c.Snapshot.Format == "png" {
		return ports.FormatPNG
	}
	return ports.FormatJPEG
}

// FrameCount returns the number of frames the generator produces.
func (g GenerateConfig) FrameCount() int {
	n := int(float64(g.DurationMs) * g.FPS / 1000)
	return max(n, 1)
}

// ParseColor parses a "#rrggbb" or "#rrggbbaa" string. Invalid input yields opaque black.
func ParseColor(hex string) color.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.Black
	}

	var v [4]uint8
	v[3] = 255
	for i := 0; i < len(hex)/2; i++ {
		hi, ok1 := hexValue(hex[i*2])
		lo, ok2 := hexValue(hex[i*2+1])
		if !ok1 || !ok2 {
			return color.Black
		}
		v[i] = hi<<4 | lo
	}
	return color.NRGBA{R: v[0], G: v[1], B: v[2], A: v[3]}
}

func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
