package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/vbc-logbook/backend/internal/jobs"
	"github.com/vbc-logbook/backend/internal/models"
)

// WebSocket message types for the import progress feed
const (
	// Client -> Server messages
	MsgTypeImportStart     = "import:start"
	MsgTypeImportSubscribe = "import:subscribe"
	MsgTypePing            = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeProgress  = "progress"
	MsgTypeComplete  = "complete"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// WSMessage is the envelope of every message in both directions
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// SubscribePayload selects the job to follow. Empty means the latest job.
type SubscribePayload struct {
	JobID string `json:"jobId"`
}

// WSProgressResponse carries one import status
type WSProgressResponse struct {
	Type   string              `json:"type"`
	JobID  string              `json:"jobId"`
	Status models.ImportStatus `json:"status"`
}

// WSCompleteResponse carries the final job snapshot
type WSCompleteResponse struct {
	Type string   `json:"type"`
	Job  jobs.Job `json:"job"`
}

// WSErrorResponse reports a protocol or job error
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// wsConn serialises writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *wsConn) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// WebSocketHandler pushes import progress to websocket clients
type WebSocketHandler struct {
	jobs         JobManager
	upgrader     websocket.Upgrader
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewWebSocketHandler creates a new import progress websocket handler
func NewWebSocketHandler(jobMgr JobManager, pollInterval time.Duration, logger *zap.Logger) *WebSocketHandler {
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		jobs: jobMgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
		pollInterval: pollInterval,
		logger:       logger.Named("websocket"),
	}
}

// HandleWebSocket upgrades the connection and serves the import protocol
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	conn := &wsConn{ws: ws}
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	wsh.logger.Debug("client connected", zap.String("remote", c.RealIP()))
	conn.send(WSMessage{Type: MsgTypeConnected, Timestamp: time.Now().UnixMilli()})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsh.logger.Warn("connection error", zap.Error(err))
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			conn.send(WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
		case MsgTypeImportStart:
			wsh.handleImportStart(ctx, conn)
		case MsgTypeImportSubscribe:
			wsh.handleSubscribe(ctx, conn, msg)
		default:
			wsh.sendError(conn, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	wsh.logger.Debug("client disconnected")
	return nil
}

// handleImportStart starts an import, or follows the one already running
func (wsh *WebSocketHandler) handleImportStart(ctx context.Context, conn *wsConn) {
	job, err := wsh.jobs.Start(ctx)
	if err != nil && !errors.Is(err, jobs.ErrImportRunning) {
		wsh.sendError(conn, err.Error(), "START_FAILED")
		return
	}
	go wsh.follow(ctx, conn, job.ID)
}

func (wsh *WebSocketHandler) handleSubscribe(ctx context.Context, conn *wsConn, msg WSMessage) {
	var payload SubscribePayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			wsh.sendError(conn, "Invalid subscribe payload: "+err.Error(), "INVALID_PAYLOAD")
			return
		}
	}
	if payload.JobID == "" {
		latest, ok := wsh.jobs.Latest()
		if !ok {
			wsh.sendError(conn, "no import job", "NOT_FOUND")
			return
		}
		payload.JobID = latest.ID
	}
	go wsh.follow(ctx, conn, payload.JobID)
}

// follow pushes every status change of a job until it is done
func (wsh *WebSocketHandler) follow(ctx context.Context, conn *wsConn, id string) {
	ticker := time.NewTicker(wsh.pollInterval)
	defer ticker.Stop()

	var last models.ImportStatus
	first := true
	for {
		job, err := wsh.jobs.Get(id)
		if err != nil {
			wsh.sendError(conn, "import job not found: "+id, "NOT_FOUND")
			return
		}
		if first || job.Status != last {
			if err := conn.send(WSProgressResponse{Type: MsgTypeProgress, JobID: id, Status: job.Status}); err != nil {
				return
			}
			first, last = false, job.Status
		}
		if job.Done() {
			conn.send(WSCompleteResponse{Type: MsgTypeComplete, Job: job})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (wsh *WebSocketHandler) sendError(conn *wsConn, message, code string) {
	conn.send(WSErrorResponse{Type: MsgTypeError, Message: message, Code: code})
}
