// Package http provides the HTTP router for the service: the upload
// prediction endpoint, the streaming WebSocket endpoint and health checks.
package http

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ai-emotion-inference-service/internal/api/ws"
	"ai-emotion-inference-service/internal/events"
	"ai-emotion-inference-service/internal/models"
	"ai-emotion-inference-service/internal/observability"
	"ai-emotion-inference-service/internal/observability/logging"
	"ai-emotion-inference-service/internal/observability/metrics"
	"ai-emotion-inference-service/internal/schema"
	"ai-emotion-inference-service/internal/service/classify"
	"ai-emotion-inference-service/internal/service/decode"
	"ai-emotion-inference-service/internal/service/feature"
	"ai-emotion-inference-service/internal/service/session"
)

// Deps wires the shared pipeline components into the router. All of them are
// built once at startup and read-only afterwards.
type Deps struct {
	Decoder        *decode.Decoder
	Extractor      *feature.Extractor
	Adapter        *classify.Adapter
	Publisher      *events.Publisher
	MaxUploadBytes int64
	MaxChunkBytes  int64
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "Emotion Inference Service is running"}`))
	})

	upload := &uploadHandler{
		decoder:   deps.Decoder,
		extractor: deps.Extractor,
		adapter:   deps.Adapter,
		publisher: deps.Publisher,
		validator: schema.New(),
		metrics:   metrics.DefaultMetrics,
		maxBytes:  deps.MaxUploadBytes,
	}

	stream := ws.NewServer(ws.Config{
		Decoder:       deps.Decoder,
		Extractor:     deps.Extractor,
		Adapter:       deps.Adapter,
		Publisher:     deps.Publisher,
		MaxChunkBytes: deps.MaxChunkBytes,
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/predict", upload.ServeHTTP)
		r.Get("/stream", stream.ServeHTTP)
	})

	return r
}

// uploadHandler serves single-file prediction requests. One request is one
// session: decode, extract and infer run to completion and exactly one
// response is written.
type uploadHandler struct {
	decoder   *decode.Decoder
	extractor *feature.Extractor
	adapter   *classify.Adapter
	publisher *events.Publisher
	validator *schema.Validator
	metrics   *metrics.Metrics
	maxBytes  int64
}

func (h *uploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing audio file in form field 'file'")
		return
	}
	defer file.Close()

	blob, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	runner := session.NewRunner(h.decoder, h.extractor, h.adapter, h.metrics)
	reqLog := logging.WithSession(runner.SessionID())

	start := time.Now()
	h.metrics.RecordSessionStart("upload")
	h.metrics.RecordUnit("upload", len(blob))
	defer func() {
		h.metrics.RecordSessionEnd(time.Since(start).Seconds())
	}()

	// The filename is used only to hint the container format.
	hint := filepath.Ext(header.Filename)
	outcome := runner.Process(r.Context(), blob, hint)

	if !outcome.OK() {
		// Pipeline failures on uploads are client-error-class outcomes:
		// the input could not be processed, the service is healthy.
		writeError(w, http.StatusUnprocessableEntity, "cannot process audio: "+outcome.Err.Error())
		return
	}

	h.publishEvent(r, runner.SessionID(), outcome.Prediction, reqLog)
	writeJSON(w, http.StatusOK, outcome.Prediction)
}

func (h *uploadHandler) publishEvent(r *http.Request, sessionID string, pred models.Prediction, reqLog zerolog.Logger) {
	if h.publisher == nil {
		return
	}
	ev := models.PredictionEvent{
		EventType:  "emotion.prediction.created",
		SessionID:  sessionID,
		Source:     "upload",
		Emotion:    pred.Emotion,
		Confidence: pred.Confidence,
		Timestamp:  time.Now().UnixMilli(),
	}
	if err := h.validator.Validate(ev); err != nil {
		reqLog.Warn().Err(err).Msg("prediction event failed validation")
		return
	}
	if err := h.publisher.PublishPrediction(r.Context(), sessionID, ev); err != nil {
		reqLog.Warn().Err(err).Msg("failed to publish prediction event")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorReply{Error: msg})
}
