package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"interview-insights-go/internal/cache"
	"interview-insights-go/internal/logger"
	"interview-insights-go/internal/pipeline"
	"interview-insights-go/internal/types"
)

// Server exposes the processing pipeline over HTTP.
type Server struct {
	pool           *pipeline.Pool
	store          cache.Store
	maxUploadBytes int64
	log            *logger.Logger
}

func NewServer(pool *pipeline.Pool, store cache.Store, maxUploadBytes int64) *Server {
	return &Server{
		pool:           pool,
		store:          store,
		maxUploadBytes: maxUploadBytes,
		log:            logger.New(),
	}
}

// Router wires all routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1/call").Subrouter()
	v1.HandleFunc("/process", s.handleProcess).Methods(http.MethodPost)
	v1.HandleFunc("/status/{id}", s.handleStatus).Methods(http.MethodGet)
	v1.HandleFunc("/result/{id}", s.handleResult).Methods(http.MethodGet)
	v1.HandleFunc("/result/{id}", s.handleDelete).Methods(http.MethodDelete)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.store.Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

// handleProcess accepts a multipart upload and queues it. The in-process
// decoder handles WAV only, so anything else is rejected up front. A pending
// record is written before queueing so status polls see the request right
// away.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "process")

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing audio file")
		return
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".wav" {
		writeError(w, http.StatusUnsupportedMediaType, "unsupported audio format, expected .wav")
		return
	}

	candidateID, err := positiveFormInt(r, "candidate_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid candidate_id, expected a positive integer")
		return
	}
	jobID, err := positiveFormInt(r, "job_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job_id, expected a positive integer")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	requestID := uuid.New().String()
	sub := pipeline.Submission{
		RequestID:   requestID,
		Audio:       data,
		Filename:    header.Filename,
		Language:    formOr(r, "language", "en"),
		Diarization: formOr(r, "diarization", "true") != "false",
		Strategy:    formOr(r, "chunk_strategy", ""),
		CandidateID: candidateID,
		JobID:       jobID,
	}

	pending := &types.ProcessingRequest{
		RequestID:   requestID,
		Status:      types.StatusProcessing,
		Stage:       types.StagePending,
		Progress:    0,
		CandidateID: candidateID,
		JobID:       jobID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Set(requestID, pending, pipeline.ProgressTTL); err != nil {
		reqLog.WithError(err).Error("pending record write failed")
		writeError(w, http.StatusInternalServerError, "failed to register request")
		return
	}

	if err := s.pool.Submit(sub); err != nil {
		_ = s.store.Delete(requestID)
		reqLog.WithField("request_id", requestID).WithError(err).Warn("submission rejected")
		writeError(w, http.StatusServiceUnavailable, "processing queue full, try again later")
		return
	}

	reqLog.WithField("request_id", requestID).
		WithField("filename", header.Filename).
		WithField("bytes", len(data)).
		Info("request accepted")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"request_id": requestID,
		"status":     string(types.StatusProcessing),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := s.store.Get(id)
	if errors.Is(err, cache.ErrNotFound) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"request_id":  rec.RequestID,
		"status":      rec.Status,
		"stage":       rec.Stage,
		"progress":    rec.Progress,
		"retry_count": rec.RetryCount,
		"started_at":  rec.CreatedAt,
		"error":       rec.Error,
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := s.store.Get(id)
	if errors.Is(err, cache.ErrNotFound) {
		writeError(w, http.StatusNotFound, "result not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.log.WithRequest(r).WithField("request_id", id).Info("delete requested")
	err := s.store.Delete(id)
	if errors.Is(err, cache.ErrNotFound) {
		writeError(w, http.StatusNotFound, "result not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"request_id": id, "status": "deleted"})
}

func formOr(r *http.Request, key, fallback string) string {
	if v := strings.TrimSpace(r.FormValue(key)); v != "" {
		return v
	}
	return fallback
}

// positiveFormInt parses a required correlation id; zero, negative and
// non-numeric values are rejected.
func positiveFormInt(r *http.Request, key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(r.FormValue(key)))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
