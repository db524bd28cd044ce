package decode

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
)

// decodeWAV parses a RIFF/WAVE blob into mono PCM. Multi-channel audio is
// downmixed by averaging the interleaved channels.
func decodeWAV(blob []byte) (*PCMBuffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(blob))
	if !dec.IsValidFile() {
		return nil, &DecodeError{Format: "wav", Err: fmt.Errorf("not a valid RIFF/WAVE file")}
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &DecodeError{Format: "wav", Err: err}
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, &DecodeError{Format: "wav", Err: fmt.Errorf("no audio data")}
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float64(int64(1) << (bitDepth - 1))

	// 8-bit WAV is unsigned with the zero line at 128; deeper depths are
	// signed and already centered.
	var offset float64
	if bitDepth == 8 {
		offset = scale
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var acc float64
		for c := 0; c < channels; c++ {
			acc += float64(buf.Data[i*channels+c])
		}
		samples[i] = (acc/float64(channels) - offset) / scale
	}

	return &PCMBuffer{Samples: samples, Rate: buf.Format.SampleRate}, nil
}
