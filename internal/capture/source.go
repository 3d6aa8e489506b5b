// Package capture enumerates shareable sources and turns the chosen one into
// a local video track.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kbinani/screenshot"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
)

var (
	ErrNoSources      = errors.New("no capture sources available")
	ErrSourceNotFound = errors.New("capture source not found")

	// ErrNoEncoder is returned by Pump for sources that need a video encoder
	// this process does not have.
	ErrNoEncoder = errors.New("no encoder for capture source")
)

type Kind string

const (
	KindScreen Kind = "screen"
	KindWindow Kind = "window"
	KindFile   Kind = "file"
)

// Source is one shareable screen, window or recorded stream.
type Source struct {
	ID   string `json:"id" msgpack:"id"`
	Name string `json:"name" msgpack:"name"`
	Kind Kind   `json:"kind" msgpack:"kind"`

	Width  int `json:"width,omitempty" msgpack:"width,omitempty"`
	Height int `json:"height,omitempty" msgpack:"height,omitempty"`

	// Path is set for file sources.
	Path string `json:"path,omitempty" msgpack:"path,omitempty"`
}

// Lister enumerates sources of one kind. Enumeration is lazy and uncached.
type Lister interface {
	List(ctx context.Context) ([]Source, error)
}

// DisplayLister enumerates the active displays.
type DisplayLister struct{}

func (DisplayLister) List(ctx context.Context) ([]Source, error) {
	n := screenshot.NumActiveDisplays()
	if n <= 0 {
		return nil, fmt.Errorf("enumerate displays: %w", ErrNoSources)
	}

	sources := make([]Source, 0, n)
	for i := 0; i < n; i++ {
		b := screenshot.GetDisplayBounds(i)
		sources = append(sources, Source{
			ID:     fmt.Sprintf("screen:%d", i),
			Name:   fmt.Sprintf("Display %d", i+1),
			Kind:   KindScreen,
			Width:  b.Dx(),
			Height: b.Dy(),
		})
	}
	return sources, nil
}

// FileLister exposes IVF recordings as sources. Files that cannot be opened
// or are not IVF are skipped with a warning.
type FileLister struct {
	Paths []string
}

func (l FileLister) List(ctx context.Context) ([]Source, error) {
	var sources []Source
	for _, p := range l.Paths {
		src, err := probeFile(p)
		if err != nil {
			slog.Warn("skipping file source", "path", p, "error", err)
			continue
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func probeFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return Source{}, err
	}
	defer f.Close()

	_, header, err := ivfreader.NewWith(f)
	if err != nil {
		return Source{}, fmt.Errorf("read ivf header: %w", err)
	}

	return Source{
		ID:     "file:" + filepath.Base(path),
		Name:   fmt.Sprintf("%s (%s)", filepath.Base(path), header.FourCC),
		Kind:   KindFile,
		Width:  int(header.Width),
		Height: int(header.Height),
		Path:   path,
	}, nil
}

// Listers merges several listers. A lister that fails is logged and skipped;
// an error is only returned when every lister failed.
type Listers []Lister

func (ls Listers) List(ctx context.Context) ([]Source, error) {
	var (
		all  []Source
		errs []error
	)
	for _, l := range ls {
		sources, err := l.List(ctx)
		if err != nil {
			slog.Warn("capture lister unavailable", "lister", fmt.Sprintf("%T", l), "error", err)
			errs = append(errs, err)
			continue
		}
		all = append(all, sources...)
	}
	if len(all) == 0 && len(errs) > 0 && len(errs) == len(ls) {
		return nil, errors.Join(errs...)
	}
	return all, nil
}

// Select picks the source with the given id, or the first one when id is
// empty.
func Select(sources []Source, id string) (Source, error) {
	if len(sources) == 0 {
		return Source{}, ErrNoSources
	}
	if id == "" {
		return sources[0], nil
	}
	for _, s := range sources {
		if s.ID == id {
			return s, nil
		}
	}
	return Source{}, fmt.Errorf("%q: %w", id, ErrSourceNotFound)
}
