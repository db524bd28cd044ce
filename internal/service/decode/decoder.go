// Package decode converts opaque audio blobs into mono PCM sample buffers.
//
// A blob may be a complete container (file upload) or one streamed fragment;
// either way it must decode independently. Supported containers are WAV, MP3
// and Ogg/Opus, sniffed from magic bytes with the filename extension as a
// fallback hint. Decoding happens entirely from in-memory readers; nothing is
// written to disk.
package decode

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	resampling "github.com/tphakala/go-audio-resampling"
)

// PCMBuffer is a flat mono sample buffer with its sample rate.
type PCMBuffer struct {
	Samples []float64 // amplitudes, nominally in [-1, 1]
	Rate    int       // Hz, always > 0 for a decoded buffer
}

// Duration returns the buffer length in seconds.
func (b *PCMBuffer) Duration() float64 {
	if b.Rate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.Rate)
}

// DecodeError reports that a blob could not be parsed as valid audio.
// It is recoverable: the caller reports it and continues with the next unit.
type DecodeError struct {
	Format string // container the decoder attempted, or "unknown"
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("decode %s: invalid audio", e.Format)
	}
	return fmt.Sprintf("decode %s: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Config holds decoder settings.
type Config struct {
	TargetSampleRate int     // canonical rate to resample to; 0 disables resampling
	MaxDurationSec   float64 // decoder-level cap on retained audio; 0 disables the cap
}

// Decoder decodes audio blobs into PCM. Safe for concurrent use; each call
// owns its own buffers and leaves no state behind.
type Decoder struct {
	targetRate  int
	maxDuration float64
}

// New creates a Decoder with the given configuration.
func New(cfg Config) *Decoder {
	return &Decoder{
		targetRate:  cfg.TargetSampleRate,
		maxDuration: cfg.MaxDurationSec,
	}
}

// Decode parses blob as a complete audio container and returns mono PCM.
// hint is the caller's declared filename or extension, used only when the
// container cannot be identified from its leading bytes.
func (d *Decoder) Decode(blob []byte, hint string) (*PCMBuffer, error) {
	if len(blob) == 0 {
		return nil, &DecodeError{Format: "unknown", Err: fmt.Errorf("empty input")}
	}

	format := sniff(blob, hint)

	var (
		pcm *PCMBuffer
		err error
	)
	switch format {
	case "wav":
		pcm, err = decodeWAV(blob)
	case "mp3":
		pcm, err = decodeMP3(blob)
	case "ogg":
		pcm, err = decodeOpus(blob)
	default:
		return nil, &DecodeError{Format: "unknown", Err: fmt.Errorf("unrecognized container")}
	}
	if err != nil {
		return nil, err
	}
	if pcm.Rate <= 0 {
		return nil, &DecodeError{Format: format, Err: fmt.Errorf("container declares invalid sample rate %d", pcm.Rate)}
	}

	// Cap retained audio before resampling. The feature extractor performs the
	// authoritative truncation; this only bounds the resampler's work.
	if d.maxDuration > 0 {
		limit := int(math.Round(float64(pcm.Rate) * d.maxDuration))
		if len(pcm.Samples) > limit {
			pcm.Samples = pcm.Samples[:limit]
		}
	}

	d.resample(pcm)
	return pcm, nil
}

// resample converts pcm to the canonical target rate in place. If the
// resampler cannot be constructed the native rate is passed through; the
// extractor accepts any rate since the rate travels with the buffer.
func (d *Decoder) resample(pcm *PCMBuffer) {
	if d.targetRate <= 0 || pcm.Rate == d.targetRate || len(pcm.Samples) == 0 {
		return
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(pcm.Rate),
		OutputRate: float64(d.targetRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return
	}

	out, err := rs.Process(pcm.Samples)
	if err != nil {
		return
	}
	// Drain the filter's internal buffers; without this the last few
	// milliseconds of every clip are withheld by the resampler.
	tail, err := rs.Flush()
	if err == nil && len(tail) > 0 {
		out = append(out, tail...)
	}
	if len(out) == 0 {
		return
	}
	pcm.Samples = out
	pcm.Rate = d.targetRate
}

// sniff identifies the container from magic bytes, falling back to the
// filename-extension hint.
func sniff(blob []byte, hint string) string {
	if len(blob) >= 12 && bytes.Equal(blob[0:4], []byte("RIFF")) && bytes.Equal(blob[8:12], []byte("WAVE")) {
		return "wav"
	}
	if len(blob) >= 4 && bytes.Equal(blob[0:4], []byte("OggS")) {
		return "ogg"
	}
	if len(blob) >= 3 && bytes.Equal(blob[0:3], []byte("ID3")) {
		return "mp3"
	}
	// Bare MPEG audio frame sync, no ID3 tag.
	if len(blob) >= 2 && blob[0] == 0xFF && blob[1]&0xE0 == 0xE0 {
		return "mp3"
	}

	switch strings.ToLower(strings.TrimPrefix(ext(hint), ".")) {
	case "wav", "wave":
		return "wav"
	case "mp3":
		return "mp3"
	case "ogg", "oga", "opus":
		return "ogg"
	}
	return "unknown"
}

func ext(hint string) string {
	if i := strings.LastIndex(hint, "."); i >= 0 {
		return hint[i:]
	}
	return hint
}
