package api

import (
	"errors"
	"io"
	"net/http"

	"sauti/internal/conversation"
	"sauti/internal/speech"
	"sauti/internal/storage"
	"sauti/internal/worker"
	"sauti/pkg/logger"
	"sauti/pkg/model"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type transcribeResponse struct {
	JobID  string          `json:"jobId"`
	Status model.JobStatus `json:"status"`
}

// handleTranscribe accepts a multipart upload (field "audio") and queues it.
// Optional form fields: language, reference, sessionId.
func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.submitter == nil {
		writeError(w, http.StatusServiceUnavailable, "Speech processing is not configured", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Audio file is too large", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "Audio file is required", nil)
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Audio file is required", nil)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read audio file", nil)
		return
	}

	if err := s.checkWordLimit(r.FormValue("reference")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	language := r.FormValue("language")
	if language == "" {
		language = conversation.LanguageSwahili
	}

	job, err := s.submitter.Submit(r.Context(), worker.Submission{
		Source:      model.JobSourceAPI,
		SessionID:   r.FormValue("sessionId"),
		Audio:       audio,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Language:    language,
		Reference:   r.FormValue("reference"),
	})
	if err != nil {
		if errors.Is(err, speech.ErrEmptyAudio) || errors.Is(err, speech.ErrAudioTooLarge) {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		logger.Error("Failed to submit transcription job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to transcribe audio", nil)
		return
	}

	writeJSON(w, http.StatusAccepted, transcribeResponse{JobID: job.ID, Status: job.Status})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "Speech processing is not configured", nil)
		return
	}

	job, err := s.jobs.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found", nil)
			return
		}
		logger.Error("Failed to load job", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load job", nil)
		return
	}

	writeJSON(w, http.StatusOK, job)
}
