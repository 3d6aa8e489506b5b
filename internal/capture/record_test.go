package capture

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
)

type packetQueue struct {
	packets []*rtp.Packet
}

func (q *packetQueue) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	if len(q.packets) == 0 {
		return nil, nil, io.EOF
	}
	p := q.packets[0]
	q.packets = q.packets[1:]
	return p, nil, nil
}

// vp8Packet builds a single-packet VP8 frame: a one byte payload descriptor
// with the start bit set, then the frame bytes.
func vp8Packet(seq uint16, ts uint32, frame ...byte) *rtp.Packet {
	return &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			Marker:         true,
			PayloadType:    96,
			SequenceNumber: seq,
			Timestamp:      ts,
		},
		Payload: append([]byte{0x10}, frame...),
	}
}

func TestRecorder_WritesPlayableIVF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ivf")
	rec, err := NewRecorder(path)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	// 0x00 marks a key frame.
	src := &packetQueue{packets: []*rtp.Packet{
		vp8Packet(1, 0, 0x00, 0xAA),
		vp8Packet(2, 3000, 0x00, 0xBB),
	}}
	if err := rec.Record(src); err != nil {
		t.Fatalf("record: %v", err)
	}
	if rec.Packets() != 2 {
		t.Fatalf("expected 2 packets, got %d", rec.Packets())
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	reader, header, err := ivfreader.NewWith(f)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header.FourCC != "VP80" || header.NumFrames != 2 {
		t.Fatalf("unexpected header %+v", header)
	}
	for _, want := range []byte{0xAA, 0xBB} {
		frame, _, err := reader.ParseNextFrame()
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if len(frame) != 2 || frame[1] != want {
			t.Fatalf("unexpected frame %x", frame)
		}
	}
}
