package capture

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
)

// PacketReader is satisfied by *webrtc.TrackRemote.
type PacketReader interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// Recorder writes a received VP8 stream to an IVF file.
type Recorder struct {
	w       *ivfwriter.IVFWriter
	packets int
}

// NewRecorder creates the IVF file at path.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r, err := NewRecorderWith(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// NewRecorderWith records into out. Close closes out when it is an
// io.Closer.
func NewRecorderWith(out io.Writer) (*Recorder, error) {
	w, err := ivfwriter.NewWith(out)
	if err != nil {
		return nil, fmt.Errorf("create ivf writer: %w", err)
	}
	return &Recorder{w: w}, nil
}

// WritePacket appends one RTP packet. Frames are written once complete.
func (r *Recorder) WritePacket(p *rtp.Packet) error {
	r.packets++
	return r.w.WriteRTP(p)
}

// Record copies packets from src until it ends. A clean end of stream
// returns nil.
func (r *Recorder) Record(src PacketReader) error {
	for {
		p, _, err := src.ReadRTP()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := r.WritePacket(p); err != nil {
			slog.Debug("dropping packet", "seq", p.SequenceNumber, "error", err)
		}
	}
}

// Packets returns how many packets were handed to the recorder.
func (r *Recorder) Packets() int {
	return r.packets
}

func (r *Recorder) Close() error {
	return r.w.Close()
}
