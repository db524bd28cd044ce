// Package ws serves the streaming classification endpoint. One WebSocket
// connection is one session: each binary frame is a complete, independently
// decodable audio container, processed to completion before the next frame is
// read, with exactly one JSON reply per frame.
//
// Frames must be WAV, MP3 or Ogg/Opus containers. WebM, the default
// MediaRecorder output in most browsers, is not accepted; such frames get a
// structured error reply and the session continues. Recording clients should
// request "audio/ogg;codecs=opus" or re-wrap captured PCM as WAV.
package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ai-emotion-inference-service/internal/events"
	"ai-emotion-inference-service/internal/models"
	"ai-emotion-inference-service/internal/observability/logging"
	"ai-emotion-inference-service/internal/observability/metrics"
	"ai-emotion-inference-service/internal/schema"
	"ai-emotion-inference-service/internal/service/classify"
	"ai-emotion-inference-service/internal/service/decode"
	"ai-emotion-inference-service/internal/service/feature"
	"ai-emotion-inference-service/internal/service/session"
)

// Server upgrades HTTP requests and runs the per-connection session loop.
type Server struct {
	decoder   *decode.Decoder
	extractor *feature.Extractor
	adapter   *classify.Adapter
	publisher *events.Publisher
	validator *schema.Validator
	metrics   *metrics.Metrics

	maxChunkBytes int64
	upgrader      websocket.Upgrader
}

// Config wires the pipeline components shared by all connections.
type Config struct {
	Decoder       *decode.Decoder
	Extractor     *feature.Extractor
	Adapter       *classify.Adapter
	Publisher     *events.Publisher
	MaxChunkBytes int64
}

// NewServer creates the streaming endpoint handler.
func NewServer(cfg Config) *Server {
	return &Server{
		decoder:       cfg.Decoder,
		extractor:     cfg.Extractor,
		adapter:       cfg.Adapter,
		publisher:     cfg.Publisher,
		validator:     schema.New(),
		metrics:       metrics.DefaultMetrics,
		maxChunkBytes: cfg.MaxChunkBytes,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles one streaming session. Chunk failures are reported as
// structured errors and the loop continues; only connection closure or a
// transport fault ends the session.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	if s.maxChunkBytes > 0 {
		conn.SetReadLimit(s.maxChunkBytes)
	}

	runner := session.NewRunner(s.decoder, s.extractor, s.adapter, s.metrics)
	connLog := logging.WithSession(runner.SessionID())
	connLog.Info().Str("remote", r.RemoteAddr).Msg("streaming session connected")

	start := time.Now()
	s.metrics.RecordSessionStart("stream")
	defer func() {
		s.metrics.RecordSessionEnd(time.Since(start).Seconds())
		connLog.Info().Int("units", runner.Units()).Msg("streaming session closed")
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			// Closure or transport fault; fatal to this session only.
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				connLog.Warn().Err(err).Msg("streaming session read failed")
			}
			return
		}

		if msgType != websocket.BinaryMessage {
			if err := conn.WriteJSON(models.ErrorReply{Error: "expected a binary audio frame"}); err != nil {
				return
			}
			continue
		}

		s.metrics.RecordUnit("stream", len(data))
		outcome := runner.Process(r.Context(), data, "")

		if !outcome.OK() {
			if err := conn.WriteJSON(models.ErrorReply{Error: outcome.Err.Error()}); err != nil {
				return
			}
			continue
		}

		s.publishEvent(r, runner.SessionID(), outcome.Prediction, connLog)
		if err := conn.WriteJSON(outcome.Prediction); err != nil {
			return
		}
	}
}

// publishEvent emits one prediction event. Publish failures are logged, never
// surfaced to the client.
func (s *Server) publishEvent(r *http.Request, sessionID string, pred models.Prediction, connLog zerolog.Logger) {
	if s.publisher == nil {
		return
	}
	ev := models.PredictionEvent{
		EventType:  "emotion.prediction.created",
		SessionID:  sessionID,
		Source:     "stream",
		Emotion:    pred.Emotion,
		Confidence: pred.Confidence,
		Timestamp:  time.Now().UnixMilli(),
	}
	if err := s.validator.Validate(ev); err != nil {
		connLog.Warn().Err(err).Msg("prediction event failed validation")
		return
	}
	if err := s.publisher.PublishPrediction(r.Context(), sessionID, ev); err != nil {
		connLog.Warn().Err(err).Msg("failed to publish prediction event")
	}
}
