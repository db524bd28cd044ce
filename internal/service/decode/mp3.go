package decode

import (
	"bytes"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"
)

// decodeMP3 parses an MP3 blob into mono PCM. The go-mp3 decoder always emits
// signed 16-bit little-endian stereo at the file's sample rate; the two
// channels are downmixed by averaging.
func decodeMP3(blob []byte) (*PCMBuffer, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(blob))
	if err != nil {
		return nil, &DecodeError{Format: "mp3", Err: err}
	}

	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, &DecodeError{Format: "mp3", Err: err}
	}

	// 2 bytes per sample, 2 channels per frame.
	const bytesPerFrame = 4
	frames := len(pcm) / bytesPerFrame
	if frames == 0 {
		return nil, &DecodeError{Format: "mp3", Err: fmt.Errorf("no audio data")}
	}

	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		left := int16(pcm[i*bytesPerFrame]) | int16(pcm[i*bytesPerFrame+1])<<8
		right := int16(pcm[i*bytesPerFrame+2]) | int16(pcm[i*bytesPerFrame+3])<<8
		samples[i] = (float64(left) + float64(right)) / 2.0 / 32768.0
	}

	return &PCMBuffer{Samples: samples, Rate: dec.SampleRate()}, nil
}
