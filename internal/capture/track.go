package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
)

// defaultFrameDuration is used when an IVF header carries no usable timebase.
const defaultFrameDuration = 33 * time.Millisecond

// SampleWriter is satisfied by *webrtc.TrackLocalStaticSample.
type SampleWriter interface {
	WriteSample(s media.Sample) error
}

// NewTrack creates the VP8 track a source is shared on.
func NewTrack(src Source) (*webrtc.TrackLocalStaticSample, error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video",
		"remotedesk",
	)
	if err != nil {
		return nil, fmt.Errorf("create track for %s: %w", src.ID, err)
	}
	return track, nil
}

// Pump feeds src into w until ctx is done. File sources loop forever at the
// frame rate in their header. Screen and window sources return ErrNoEncoder.
func Pump(ctx context.Context, w SampleWriter, src Source) error {
	if src.Kind != KindFile {
		return fmt.Errorf("%s: %w", src.ID, ErrNoEncoder)
	}

	for {
		if err := playFile(ctx, w, src.Path); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		slog.Debug("restarting file source", "path", src.Path)
	}
}

// playFile plays one pass of an IVF file. It returns nil at end of file or
// when ctx is cancelled.
func playFile(ctx context.Context, w SampleWriter, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader, header, err := ivfreader.NewWith(f)
	if err != nil {
		return fmt.Errorf("read ivf header: %w", err)
	}

	frameDuration := defaultFrameDuration
	if header.TimebaseNumerator > 0 && header.TimebaseDenominator > 0 {
		frameDuration = time.Duration(header.TimebaseNumerator) * time.Second / time.Duration(header.TimebaseDenominator)
	}

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		frame, _, err := reader.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read ivf frame: %w", err)
		}

		if err := w.WriteSample(media.Sample{Data: frame, Duration: frameDuration}); err != nil {
			return fmt.Errorf("write sample: %w", err)
		}
	}
}
