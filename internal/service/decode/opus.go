package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/hraban/opus"
)

// Ogg/Opus always decodes at 48 kHz regardless of the encoded input rate.
const opusRate = 48000

// decodeOpus parses an Ogg/Opus blob into mono PCM. Each streamed chunk is a
// complete Ogg container, so a fresh stream decoder is opened per blob and
// closed before returning.
func decodeOpus(blob []byte) (*PCMBuffer, error) {
	s, err := opus.NewStream(bytes.NewReader(blob))
	if err != nil {
		return nil, &DecodeError{Format: "ogg", Err: err}
	}
	defer s.Close()

	buf := make([]float32, 4096)
	var samples []float64
	for {
		n, err := s.ReadFloat32(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DecodeError{Format: "ogg", Err: err}
		}
		if n == 0 {
			break
		}
		for _, v := range buf[:n] {
			samples = append(samples, float64(v))
		}
	}

	if len(samples) == 0 {
		return nil, &DecodeError{Format: "ogg", Err: fmt.Errorf("no audio data")}
	}

	return &PCMBuffer{Samples: samples, Rate: opusRate}, nil
}
