// Package mux implements the container writing stage.
package mux

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/user/webmplay/pkg/pipeline"
	"github.com/user/webmplay/pkg/ports"
)

// ErrUnknownContainer is returned when no muxer is registered for a container name.
var ErrUnknownContainer = errors.New("mux: unknown container")

// Stage writes encoded streams with the muxer registered for the requested container.
type Stage struct {
	muxers map[string]ports.Muxer
	logger ports.Logger
}

// NewStage creates a new mux stage. Container names are matched case-insensitively.
func NewStage(muxers map[string]ports.Muxer, logger ports.Logger) *Stage {
	m := make(map[string]ports.Muxer, len(muxers))
	for name, mx := range muxers {
		m[strings.ToLower(name)] = mx
	}
	return &Stage{
		muxers: m,
		logger: logger.WithComponent("mux"),
	}
}

// Containers returns the registered container names in sorted order.
func (s *Stage) Containers() []string {
	names := make([]string, 0, len(s.muxers))
	for name := range s.muxers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Execute muxes the streams.
func (s *Stage) Execute(ctx context.Context, input pipeline.MuxInput) (pipeline.MuxResult, error) {
	name := strings.ToLower(input.Container)
	muxer, ok := s.muxers[name]
	if !ok {
		return pipeline.MuxResult{}, fmt.Errorf("%w: %q", ErrUnknownContainer, input.Container)
	}
	if err := ctx.Err(); err != nil {
		return pipeline.MuxResult{}, err
	}

	data, err := muxer.Mux(input.Streams)
	if err != nil {
		return pipeline.MuxResult{}, fmt.Errorf("mux %s: %w", name, err)
	}

	s.logger.Debug("Muxed %d streams into %d bytes of %s", len(input.Streams), len(data), name)
	return pipeline.MuxResult{Data: data, Container: name}, nil
}
