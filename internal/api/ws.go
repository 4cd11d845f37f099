package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"sauti/internal/conversation"
	"sauti/internal/metrics"
	"sauti/pkg/logger"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

const (
	channelWebSocket = "websocket"
	wsWriteTimeout   = 5 * time.Second
	wsReadLimit      = 64 << 10
)

// Client events
const (
	eventSendMessage = "send-message"
	eventJoinSession = "join-session"
)

// Server events
const (
	eventMessageResponse = "message-response"
	eventMetricsUpdate   = "metrics-update"
	eventError           = "error"
)

type wsRequest struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Language  string `json:"language"`
}

type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type wsError struct {
	Message string `json:"message"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(s.opts.AllowedOrigins),
	})
	if err != nil {
		logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	conn.SetReadLimit(wsReadLimit)
	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	logger.Debug("WebSocket client connected", zap.String("remote_ip", r.RemoteAddr))

	err = s.serveWebSocket(r.Context(), conn)
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		logger.Debug("WebSocket client disconnected")
	default:
		if !errors.Is(err, context.Canceled) {
			logger.Warn("WebSocket connection closed", zap.Error(err))
		}
	}
}

// serveWebSocket handles events until the client goes away. The session
// joined last is used for messages that do not name one.
func (s *Server) serveWebSocket(ctx context.Context, conn *websocket.Conn) error {
	var joined string

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var req wsRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := s.wsSend(ctx, conn, eventError, wsError{Message: "Invalid message format"}); err != nil {
				return err
			}
			continue
		}

		switch req.Type {
		case eventJoinSession:
			joined = req.SessionID
			logger.Debug("WebSocket client joined session", zap.String("session_id", joined))

		case eventSendMessage:
			if req.SessionID == "" {
				req.SessionID = joined
			}
			if err := s.wsMessage(ctx, conn, req); err != nil {
				return err
			}

		default:
			if err := s.wsSend(ctx, conn, eventError, wsError{Message: "Unknown event type: " + req.Type}); err != nil {
				return err
			}
		}
	}
}

func (s *Server) wsMessage(ctx context.Context, conn *websocket.Conn, req wsRequest) error {
	if req.SessionID == "" || req.Message == "" {
		return s.wsSend(ctx, conn, eventError, wsError{Message: "Message and sessionId are required"})
	}
	if err := s.checkWordLimit(req.Message); err != nil {
		return s.wsSend(ctx, conn, eventError, wsError{Message: err.Error()})
	}
	if req.Language == "" {
		req.Language = conversation.LanguageSwahili
	}

	ex, err := s.survey.Message(ctx, channelWebSocket, req.SessionID, req.Message, req.Language)
	if err != nil {
		logger.Error("Failed to process message",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		return s.wsSend(ctx, conn, eventError, wsError{Message: "Failed to process message"})
	}

	if err := s.wsSend(ctx, conn, eventMessageResponse, ex.Reply); err != nil {
		return err
	}
	return s.wsSend(ctx, conn, eventMetricsUpdate, ex.Metrics)
}

func (s *Server) wsSend(ctx context.Context, conn *websocket.Conn, event string, data any) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, wsEvent{Type: event, Data: data})
}

// originPatterns turns configured CORS origins into host patterns for the
// WebSocket origin check.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			patterns = append(patterns, o)
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}
