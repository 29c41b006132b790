// Package handlers orchestrates capture sessions: websocket intake of
// window telemetry and completed video segments, per-session analysis, and
// globally ordered card generation.
package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dayloom/dayloom/config"
	"github.com/dayloom/dayloom/models"
	"github.com/dayloom/dayloom/utils"
)

// Deps bundles the engine collaborators shared by every session.
type Deps struct {
	Config   *config.Config
	Sampler  *utils.FrameSampler
	Provider *utils.CompletionClient
	Store    *utils.CardStore
	Cards    *CardsHandler
	AppNames *AppNameTable
}

// CaptureSession is the server side of one connected capture client. The
// websocket read loop owns the telemetry buffer; completed segments are
// handed to the analysis worker over BatchCh.
type CaptureSession struct {
	ID         string
	Connection *websocket.Conn
	Logger     *zap.Logger

	BatchCh chan models.CaptureBatch

	IsActive     bool
	StartTime    time.Time
	LastActivity time.Time

	samples  []models.WindowSample
	appNames *AppNameTable

	// writeMu serializes websocket writes between the read loop and the
	// card worker, and guards IsActive.
	writeMu sync.Mutex
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Capture clients run on the same machine.
	},
}

func NewCaptureSession(id string, conn *websocket.Conn, appNames *AppNameTable) *CaptureSession {
	logger := zap.L().With(zap.String("session_id", id))

	return &CaptureSession{
		ID:           id,
		Connection:   conn,
		Logger:       logger,
		BatchCh:      make(chan models.CaptureBatch, 4),
		IsActive:     true,
		StartTime:    time.Now(),
		LastActivity: time.Now(),
		appNames:     appNames,
	}
}

// Stop ends the session. The analysis worker drains BatchCh and exits.
func (cs *CaptureSession) Stop() {
	cs.writeMu.Lock()
	if !cs.IsActive {
		cs.writeMu.Unlock()
		return
	}
	cs.IsActive = false
	cs.writeMu.Unlock()

	cs.Logger.Info("Stopping session")
	close(cs.BatchCh)
	if cs.Connection != nil {
		cs.Connection.Close()
	}
}

// Message is the websocket envelope shared with capture clients.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type segmentCompletePayload struct {
	VideoPath string    `json:"video_path"`
	Duration  float64   `json:"duration"`
	StartedAt time.Time `json:"started_at"`
}

// HandleCaptureSession upgrades the connection and runs one capture session
// until the client stops or disconnects.
func HandleCaptureSession(w http.ResponseWriter, r *http.Request, deps *Deps) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Error("Failed to upgrade to websocket", zap.Error(err))
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()
	session := NewCaptureSession(sessionID, conn, deps.AppNames)
	session.Logger.Info("New capture session started")

	InitAnalysisHandler(session, deps)

	session.listen()

	session.Logger.Info("Capture session ended")
	session.Stop()
}

func (cs *CaptureSession) listen() {
	for {
		var msg Message
		if err := cs.Connection.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				cs.Logger.Error("WebSocket error", zap.Error(err))
			}
			return
		}
		cs.LastActivity = time.Now()

		switch msg.Type {
		case "window_sample":
			cs.handleWindowSample(msg.Data)
		case "segment_complete":
			cs.handleSegmentComplete(msg.Data)
		case "ping":
			cs.send("pong", nil)
		case "stop":
			cs.Logger.Info("Received stop command from client")
			cs.send("stop_confirmation", map[string]interface{}{
				"session_id": cs.ID,
			})
			return
		default:
			cs.Logger.Warn("Unknown message type", zap.String("type", msg.Type))
		}
	}
}

func (cs *CaptureSession) handleWindowSample(data json.RawMessage) {
	var sample models.WindowSample
	if err := json.Unmarshal(data, &sample); err != nil {
		cs.Logger.Error("Invalid window sample", zap.Error(err))
		return
	}
	sample.AppName = cs.appNames.Friendly(sample.AppName)
	cs.samples = append(cs.samples, sample)
}

func (cs *CaptureSession) handleSegmentComplete(data json.RawMessage) {
	var payload segmentCompletePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		cs.Logger.Error("Invalid segment notification", zap.Error(err))
		return
	}
	if payload.StartedAt.IsZero() {
		payload.StartedAt = time.Now().Add(-time.Duration(payload.Duration * float64(time.Second)))
	}

	batch := models.CaptureBatch{
		SessionID: cs.ID,
		VideoPath: payload.VideoPath,
		Duration:  payload.Duration,
		StartedAt: payload.StartedAt,
		Samples:   cs.samples,
	}
	cs.samples = nil

	cs.Logger.Info("Segment complete",
		zap.String("video_path", batch.VideoPath),
		zap.Float64("duration", batch.Duration),
		zap.Int("samples", len(batch.Samples)))

	cs.BatchCh <- batch
}

// SendCard pushes a freshly synthesized card back to the capture client.
// Cards arriving after the session stopped are dropped.
func (cs *CaptureSession) SendCard(card models.ActivityCard) {
	cs.send("card", card)
}

func (cs *CaptureSession) send(msgType string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		cs.Logger.Error("Failed to marshal websocket payload", zap.Error(err), zap.String("type", msgType))
		return
	}
	msg := Message{
		Type:      msgType,
		Data:      raw,
		Timestamp: time.Now(),
	}
	cs.writeMu.Lock()
	defer cs.writeMu.Unlock()
	if !cs.IsActive {
		return
	}
	if err := cs.Connection.WriteJSON(msg); err != nil {
		cs.Logger.Error("Failed to send websocket message", zap.Error(err), zap.String("type", msgType))
	}
}
