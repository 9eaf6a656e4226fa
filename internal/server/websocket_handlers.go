package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/pixcanon/internal/raster"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// WebSocketDecodeRequest is one decode request. Data is base64 in JSON.
type WebSocketDecodeRequest struct {
	Filename     string `json:"filename"`
	Data         []byte `json:"data"`
	MaxDimension int    `json:"max_dim,omitempty"`
	Format       string `json:"format,omitempty"` // json, png or raw
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketDecodeResponse is sent for each stage of a request.
type WebSocketDecodeResponse struct {
	Type      string        `json:"type"`
	Status    string        `json:"status"` // processing, completed, error
	Result    *DecodeResult `json:"result,omitempty"`
	Image     []byte        `json:"image,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorType string        `json:"error_type,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// decodeWebSocketHandler upgrades the connection and serves decode requests
// until the client goes away.
func (s *Server) decodeWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	conn.SetReadLimit(s.maxUploadMB*1024*1024*4/3 + 4096)
	s.handleWebSocketConnection(r.Context(), conn)
}

// handleWebSocketConnection processes messages from a WebSocket connection.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, data)
		}
	}
}

// handleWebSocketMessage decodes one request and writes its responses.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, data []byte) {
	var req WebSocketDecodeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", "invalid_request", fmt.Sprintf("Failed to parse request: %v", err))
		return
	}
	if len(req.Data) == 0 {
		s.sendWebSocketError(conn, "", "invalid_request", "No image data provided")
		return
	}

	requestID := strconv.FormatInt(time.Now().UnixNano(), 10)
	s.sendWebSocketResponse(conn, WebSocketDecodeResponse{
		Type:      "decode_response",
		Status:    "processing",
		RequestID: requestID,
	})

	dreq := decodeRequest{Filename: req.Filename, MaxDimension: req.MaxDimension, Format: req.Format}
	rast, result, err := s.decodeUpload(ctx, dreq, bytes.NewReader(req.Data))
	if err != nil {
		kind := "internal_error"
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			kind = reqErr.kind
		}
		s.sendWebSocketError(conn, requestID, kind, err.Error())
		return
	}

	resp := WebSocketDecodeResponse{
		Type:      "decode_response",
		Status:    "completed",
		Result:    result,
		RequestID: requestID,
	}
	switch req.Format {
	case formatPNG:
		var buf bytes.Buffer
		if err := raster.EncodePNG(&buf, rast); err != nil {
			s.sendWebSocketError(conn, requestID, "internal_error", err.Error())
			return
		}
		resp.Image = buf.Bytes()
	case formatRaw:
		resp.Image = rast.Pix
	}
	s.sendWebSocketResponse(conn, resp)
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketDecodeResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketDecodeResponse{
		Type:      "error",
		Status:    "error",
		Error:     message,
		ErrorType: errorType,
		RequestID: requestID,
	})
}
