package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// decodeWAV parses a WAV container into raw PCM samples.
func decodeWAV(b []byte) (*gaudio.IntBuffer, error) {
	d := wav.NewDecoder(bytes.NewReader(b))
	if !d.IsValidFile() {
		return nil, errors.New("not a valid RIFF/WAVE container")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode pcm: %w", err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, errors.New("no audio frames in container")
	}
	return buf, nil
}

// encodeWAV writes mono 16-bit PCM samples into a WAV container.
func encodeWAV(samples []int, sampleRate int) ([]byte, error) {
	ws := &seekBuffer{}
	enc := wav.NewEncoder(ws, sampleRate, 16, 1, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode pcm: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return ws.Bytes(), nil
}

// seekBuffer is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch RIFF sizes on Close, which bytes.Buffer cannot do.
type seekBuffer struct {
	data []byte
	pos  int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if need := s.pos + len(p); need > len(s.data) {
		grown := make([]byte, need)
		copy(grown, s.data)
		s.data = grown
	}
	copy(s.data[s.pos:], p)
	s.pos += len(p)
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = int64(s.pos) + offset
	case io.SeekEnd:
		next = int64(len(s.data)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if next < 0 {
		return 0, errors.New("negative seek position")
	}
	s.pos = int(next)
	return next, nil
}

func (s *seekBuffer) Bytes() []byte { return s.data }
