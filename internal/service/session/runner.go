package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-emotion-inference-service/internal/models"
	"ai-emotion-inference-service/internal/observability/logging"
	"ai-emotion-inference-service/internal/observability/metrics"
	"ai-emotion-inference-service/internal/service/classify"
	"ai-emotion-inference-service/internal/service/decode"
	"ai-emotion-inference-service/internal/service/feature"
)

// ErrKind classifies which pipeline stage a unit failed in.
type ErrKind int

const (
	ErrNone ErrKind = iota
	ErrDecode
	ErrExtract
	ErrInfer
)

// String returns the stage name, used for metrics labels and logs.
func (k ErrKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrDecode:
		return "decode"
	case ErrExtract:
		return "extract"
	case ErrInfer:
		return "infer"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of processing one unit of audio. Exactly one of
// Prediction (Kind==ErrNone) or Err is meaningful.
type Outcome struct {
	Prediction models.Prediction
	Kind       ErrKind
	Err        error
}

// OK reports whether the unit produced a prediction.
func (o Outcome) OK() bool { return o.Kind == ErrNone }

// Runner chains decoder → extractor → classifier for the units of one logical
// client interaction. Units are processed strictly one at a time; no audio
// state survives between units. The decoder, extractor and adapter are shared
// read-only across all runners.
type Runner struct {
	decoder   *decode.Decoder
	extractor *feature.Extractor
	adapter   *classify.Adapter
	metrics   *metrics.Metrics
	log       zerolog.Logger

	sessionID string
	lifecycle *Lifecycle
	units     int
}

// NewRunner creates a Runner with a fresh session ID.
func NewRunner(d *decode.Decoder, e *feature.Extractor, a *classify.Adapter, m *metrics.Metrics) *Runner {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	id := uuid.NewString()
	return &Runner{
		decoder:   d,
		extractor: e,
		adapter:   a,
		metrics:   m,
		log:       logging.WithSession(id),
		sessionID: id,
		lifecycle: NewLifecycle(id),
	}
}

// SessionID returns the session's unique ID.
func (r *Runner) SessionID() string { return r.sessionID }

// State returns the lifecycle state of the current unit.
func (r *Runner) State() State { return r.lifecycle.State() }

// Units returns the number of units processed so far.
func (r *Runner) Units() int { return r.units }

// Process runs one complete unit of audio through the pipeline and returns a
// typed outcome. Every stage catches its own failure domain; a failed unit
// never takes the session down. The PCM buffer and tensor are owned by this
// call and discarded before it returns.
func (r *Runner) Process(ctx context.Context, blob []byte, hint string) Outcome {
	r.lifecycle.Reset()
	r.units++
	unitLog := r.log.With().Int("unit", r.units).Int("bytes", len(blob)).Logger()

	// Decode
	if err := r.lifecycle.BeginDecode(); err != nil {
		return r.fail(unitLog, ErrDecode, err)
	}
	start := time.Now()
	pcm, err := r.decoder.Decode(blob, hint)
	r.metrics.RecordStageLatency("decode", time.Since(start).Seconds())
	if err != nil {
		return r.fail(unitLog, ErrDecode, err)
	}

	// Extract
	if err := r.lifecycle.BeginExtract(); err != nil {
		return r.fail(unitLog, ErrExtract, err)
	}
	start = time.Now()
	tensor, err := r.extractor.Extract(pcm.Samples, pcm.Rate)
	r.metrics.RecordStageLatency("extract", time.Since(start).Seconds())
	if err != nil {
		return r.fail(unitLog, ErrExtract, err)
	}

	// Infer
	if err := r.lifecycle.BeginInfer(); err != nil {
		return r.fail(unitLog, ErrInfer, err)
	}
	start = time.Now()
	pred, err := r.adapter.Classify(ctx, tensor)
	r.metrics.RecordStageLatency("infer", time.Since(start).Seconds())
	if err != nil {
		return r.fail(unitLog, ErrInfer, err)
	}

	if err := r.lifecycle.Complete(); err != nil {
		return r.fail(unitLog, ErrInfer, err)
	}

	r.metrics.RecordPrediction(pred.Emotion, pred.Confidence)
	unitLog.Debug().
		Str("emotion", pred.Emotion).
		Int("confidence", pred.Confidence).
		Float64("audioSeconds", pcm.Duration()).
		Msg("unit classified")

	return Outcome{Prediction: pred}
}

func (r *Runner) fail(unitLog zerolog.Logger, kind ErrKind, err error) Outcome {
	r.lifecycle.Fail()
	r.metrics.RecordPipelineError(kind.String())
	unitLog.Warn().Err(err).Str("stage", kind.String()).Msg("unit failed")
	return Outcome{Kind: kind, Err: err}
}
