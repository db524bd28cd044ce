// Package feature turns PCM sample buffers into the fixed-shape log-mel tensor
// the classifier consumes.
//
// The transform parameters are pinned to the configuration the classifier was
// trained against and must be held constant across all calls:
//
//	window of 3.0 s (padded or truncated), STFT with n_fft=2048, hop=512,
//	periodic Hann window, centered frames with reflect padding, 64 Slaney-mel
//	power bands, dB conversion with ref=1.0, amin=1e-10, top_db=80, then a
//	whole-matrix z-score with a 1e-6 epsilon on the deviation.
//
// The output shape is always (64, 129, 1) regardless of input length or rate.
package feature

import (
	"fmt"
	"math"
	"sync"

	"github.com/mjibson/go-dsp/fft"
)

// Defaults for the tensor geometry the trained classifier expects.
const (
	DefaultMelBands    = 64
	DefaultMaxFrames   = 129
	DefaultMaxDuration = 3.0 // seconds

	fftSize   = 2048
	hopLength = 512

	dbAmin  = 1e-10
	dbTopDB = 80.0
	stdEps  = 1e-6
)

// Tensor is a fixed-shape (Bands, Frames, Channels) feature array stored flat
// in band-major order. Channels is always 1; it exists because the classifier
// input carries a trailing singleton channel axis.
type Tensor struct {
	Bands    int
	Frames   int
	Channels int
	Data     []float64
}

// At returns the value at the given band and frame.
func (t *Tensor) At(band, frame int) float64 {
	return t.Data[band*t.Frames+frame]
}

// Shape returns the logical tensor shape.
func (t *Tensor) Shape() [3]int {
	return [3]int{t.Bands, t.Frames, t.Channels}
}

// ExtractionError reports a non-fatal failure while transforming PCM into the
// feature tensor. The caller logs it and continues the session.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("feature extraction: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Config holds extractor settings; zero values fall back to the defaults.
type Config struct {
	MelBands    int
	MaxFrames   int
	MaxDuration float64
}

// Extractor computes log-mel tensors. Safe for concurrent use; the mel
// filterbank is cached per sample rate behind a lock, everything else is
// per-call state.
type Extractor struct {
	bands       int
	maxFrames   int
	maxDuration float64

	mu      sync.RWMutex
	filters map[int][][]float64 // sample rate -> filterbank
	window  []float64
}

// New creates an Extractor with the given configuration.
func New(cfg Config) *Extractor {
	if cfg.MelBands <= 0 {
		cfg.MelBands = DefaultMelBands
	}
	if cfg.MaxFrames <= 0 {
		cfg.MaxFrames = DefaultMaxFrames
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}

	// Periodic Hann, matching the librosa STFT default.
	win := make([]float64, fftSize)
	for i := range win {
		win[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(fftSize)))
	}

	return &Extractor{
		bands:       cfg.MelBands,
		maxFrames:   cfg.MaxFrames,
		maxDuration: cfg.MaxDuration,
		filters:     make(map[int][][]float64),
		window:      win,
	}
}

// Extract converts a PCM buffer at the given sample rate into the fixed-shape
// feature tensor. Any internal failure, numeric faults included, is returned
// as an *ExtractionError rather than propagated; the session continues.
func (e *Extractor) Extract(samples []float64, sampleRate int) (t *Tensor, err error) {
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = &ExtractionError{Err: fmt.Errorf("panic during extraction: %v", r)}
		}
	}()

	if sampleRate <= 0 {
		return nil, &ExtractionError{Err: fmt.Errorf("invalid sample rate %d", sampleRate)}
	}

	targetLen := int(math.Round(float64(sampleRate) * e.maxDuration))
	if targetLen <= fftSize/2 {
		return nil, &ExtractionError{Err: fmt.Errorf("analysis window of %d samples too short for %d-point transform", targetLen, fftSize)}
	}

	// Pad or truncate the time-domain signal to exactly targetLen. Both
	// branches are mandatory: the transform input length never varies for a
	// given rate.
	pcm := make([]float64, targetLen)
	copy(pcm, samples)
	for _, v := range pcm {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, &ExtractionError{Err: fmt.Errorf("non-finite sample in input")}
		}
	}

	logmel := e.logMel(pcm, sampleRate)
	normalize(logmel)

	// Frame-axis fix-up: the time axis is padded or truncated to exactly
	// maxFrames, then the trailing singleton channel axis is appended.
	frames := len(logmel[0])
	out := &Tensor{
		Bands:    e.bands,
		Frames:   e.maxFrames,
		Channels: 1,
		Data:     make([]float64, e.bands*e.maxFrames),
	}
	for b := 0; b < e.bands; b++ {
		n := frames
		if n > e.maxFrames {
			n = e.maxFrames
		}
		copy(out.Data[b*e.maxFrames:b*e.maxFrames+n], logmel[b][:n])
	}
	return out, nil
}

// logMel computes the dB-scale mel power spectrogram of pcm.
func (e *Extractor) logMel(pcm []float64, rate int) [][]float64 {
	power := e.stft(pcm)
	filters := e.filterbank(rate)

	bins := fftSize/2 + 1
	frames := len(power)

	mel := make([][]float64, e.bands)
	maxDB := math.Inf(-1)
	for b := 0; b < e.bands; b++ {
		row := make([]float64, frames)
		filt := filters[b]
		for f := 0; f < frames; f++ {
			var acc float64
			spec := power[f]
			for k := 0; k < bins; k++ {
				acc += filt[k] * spec[k]
			}
			db := 10.0 * math.Log10(math.Max(dbAmin, acc))
			row[f] = db
			if db > maxDB {
				maxDB = db
			}
		}
		mel[b] = row
	}

	// top_db floor relative to the matrix peak.
	floor := maxDB - dbTopDB
	for b := range mel {
		for f, v := range mel[b] {
			if v < floor {
				mel[b][f] = floor
			}
		}
	}
	return mel
}

// stft returns the per-frame power spectrum of pcm with centered frames.
func (e *Extractor) stft(pcm []float64) [][]float64 {
	pad := fftSize / 2
	padded := reflectPad(pcm, pad)

	frames := 1 + len(pcm)/hopLength
	bins := fftSize/2 + 1

	power := make([][]float64, frames)
	buf := make([]float64, fftSize)
	for f := 0; f < frames; f++ {
		start := f * hopLength
		for i := 0; i < fftSize; i++ {
			buf[i] = padded[start+i] * e.window[i]
		}
		coeffs := fft.FFTReal(buf)
		spec := make([]float64, bins)
		for k := 0; k < bins; k++ {
			re, im := real(coeffs[k]), imag(coeffs[k])
			spec[k] = re*re + im*im
		}
		power[f] = spec
	}
	return power
}

// filterbank returns the cached mel filterbank for rate, building it on first
// use. Filterbanks are immutable once published.
func (e *Extractor) filterbank(rate int) [][]float64 {
	e.mu.RLock()
	fb, ok := e.filters[rate]
	e.mu.RUnlock()
	if ok {
		return fb
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if fb, ok = e.filters[rate]; ok {
		return fb
	}
	fb = melFilterbank(e.bands, fftSize, rate)
	e.filters[rate] = fb
	return fb
}

// reflectPad pads signal by n samples of reflection on each side.
func reflectPad(signal []float64, n int) []float64 {
	out := make([]float64, n+len(signal)+n)
	copy(out[n:], signal)
	for i := 0; i < n; i++ {
		out[n-1-i] = signal[i+1]
		out[n+len(signal)+i] = signal[len(signal)-2-i]
	}
	return out
}

// normalize applies a whole-matrix z-score in place. The epsilon on the
// deviation keeps fully silent input from dividing by zero.
func normalize(m [][]float64) {
	var sum float64
	var count int
	for _, row := range m {
		for _, v := range row {
			sum += v
		}
		count += len(row)
	}
	mean := sum / float64(count)

	var ss float64
	for _, row := range m {
		for _, v := range row {
			d := v - mean
			ss += d * d
		}
	}
	std := math.Sqrt(ss / float64(count))

	for _, row := range m {
		for i, v := range row {
			row[i] = (v - mean) / (std + stdEps)
		}
	}
}
