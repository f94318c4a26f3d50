package runner

import (
	"github.com/user/webmplay/pkg/adapters/codecdetect"
	"github.com/user/webmplay/pkg/playback"
	"github.com/user/webmplay/pkg/ports"
)

// Info describes a file without playing it.
type Info struct {
	Path     string
	Format   codecdetect.Format
	FileSize int64
	Tracks   []ports.Track

	Descriptor playback.StreamDescriptor
	Keyframes  int
	Index      playback.IndexDump

	HasAudio bool
	Audio    playback.AudioInfo
}

// Info parses path, indexes its video track and decodes its audio track
// to report the stream constants.
func (r *Runner) Info(path string, threads int) (Info, error) {
	loaded, err := r.Open(path, playback.Options{Threads: threads, Volume: 1, DisableAudio: true}, nil)
	if err != nil {
		return Info{}, err
	}
	s := loaded.Session
	defer s.Unload()

	info := Info{
		Path:       path,
		Format:     loaded.Format,
		FileSize:   loaded.FileSize,
		Tracks:     loaded.Container.Tracks(),
		Descriptor: s.Descriptor(),
		Keyframes:  len(s.Index().Keyframes()),
		Index:      s.Index().Dump(),
	}

	if r.deps.Audio == nil {
		return info, nil
	}
	for _, t := range info.Tracks {
		if t.Type != ports.TrackAudio || !r.deps.Audio.Supports(t.CodecID) {
			continue
		}
		dec, err := r.deps.Audio.Open(t.CodecID)
		if err != nil {
			r.logger.Warn("Audio disabled: %v", err)
			break
		}
		c := loaded.Container
		_, audio, err := playback.PredecodeAudio(dec, t.CodecPrivate, c.Blocks(t.Number), c.Body(), r.logger)
		if err != nil {
			r.logger.Warn("Audio disabled: %v", err)
			break
		}
		info.HasAudio, info.Audio = true, audio
		break
	}
	return info, nil
}
