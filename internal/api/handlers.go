package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sauti/internal/conversation"
	"sauti/internal/metrics"
	"sauti/internal/wer"
	"sauti/pkg/cache"
	"sauti/pkg/logger"
	"sauti/pkg/model"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const channelHTTP = "http"

type startRequest struct {
	Language string `json:"language"`
}

type startResponse struct {
	SessionID string        `json:"sessionId"`
	Greeting  model.Message `json:"greeting"`
}

type messageRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Message   string `json:"message" validate:"required"`
	Language  string `json:"language"`
}

type werRequest struct {
	Reference  string   `json:"reference"`
	Hypothesis string   `json:"hypothesis"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type werResponse struct {
	wer.Result
	Confidence  *float64 `json:"confidence,omitempty"`
	AdjustedWER *float64 `json:"adjustedWer,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"service":   "sauti",
	})
}

func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Language == "" {
		req.Language = conversation.LanguageSwahili
	}

	sessionID, greeting := s.survey.Start(req.Language)
	writeJSON(w, http.StatusOK, startResponse{SessionID: sessionID, Greeting: greeting})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Language == "" {
		req.Language = conversation.LanguageSwahili
	}

	ex, err := s.survey.Message(r.Context(), channelHTTP, req.SessionID, req.Message, req.Language)
	if err != nil {
		logger.Error("Failed to process message",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to process message", nil)
		return
	}

	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history := s.survey.History(chi.URLParam(r, "sessionId"))
	if history == nil {
		history = []model.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Server) handleSessionMetrics(w http.ResponseWriter, r *http.Request) {
	summary, ok := s.survey.SessionMetrics(chi.URLParam(r, "sessionId"))
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"metrics": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": summary})
}

func (s *Server) handleGlobalMetrics(w http.ResponseWriter, r *http.Request) {
	stats, ok := s.survey.GlobalMetrics()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"metrics": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": stats})
}

func (s *Server) handleWER(w http.ResponseWriter, r *http.Request) {
	var req werRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.checkWordLimit(req.Reference, req.Hypothesis); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	resp := werResponse{Result: s.detailed(r.Context(), req.Reference, req.Hypothesis)}
	if req.Confidence != nil {
		c := wer.ClampConfidence(*req.Confidence)
		adjusted := s.calc.ConfidenceAdjusted(req.Reference, req.Hypothesis, c)
		resp.Confidence = &c
		resp.AdjustedWER = &adjusted
	}

	metrics.WERComputed.WithLabelValues("api").Observe(resp.WER)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionWER(w http.ResponseWriter, r *http.Request) {
	res := s.survey.SessionWER(chi.URLParam(r, "sessionId"))
	if res.DetailedResults == nil {
		res.DetailedResults = []wer.Result{}
	}
	writeJSON(w, http.StatusOK, res)
}

// checkWordLimit rejects inputs the alignment would spend too long on
func (s *Server) checkWordLimit(texts ...string) error {
	if s.opts.MaxWords <= 0 {
		return nil
	}
	for _, t := range texts {
		if n := len(wer.Normalize(t)); n > s.opts.MaxWords {
			return fmt.Errorf("input has %d words, limit is %d", n, s.opts.MaxWords)
		}
	}
	return nil
}

// detailed returns the breakdown for a pair, memoized in the cache when one
// is configured. Cache failures fall through to computing the result.
func (s *Server) detailed(ctx context.Context, reference, hypothesis string) wer.Result {
	if s.cache == nil {
		return s.calc.Detailed(reference, hypothesis)
	}

	key := cache.WERCacheKey(reference, hypothesis)

	var cached wer.Result
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached
	}
	if !errors.Is(err, cache.ErrNotFound) {
		logger.Warn("Failed to read cached WER result", zap.Error(err))
	}

	res := s.calc.Detailed(reference, hypothesis)
	if err := s.cache.SetWithTTL(ctx, key, res, s.opts.ResultTTL); err != nil {
		logger.Warn("Failed to cache WER result", zap.Error(err))
	}
	return res
}
