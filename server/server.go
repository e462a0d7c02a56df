// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package server is the HTTP gateway. Clients upload serialized ciphertexts,
// submit review and sign jobs that reference them by handle, and poll the
// jobs until workers publish result handles.
package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/luxfi/fhe-ecdsa/internal/queue"
	"github.com/luxfi/fhe-ecdsa/internal/storage"
	"github.com/luxfi/fhe-ecdsa/internal/worker"
)

// DefaultMaxBlob bounds uploaded ciphertexts. A 128-block TFHE ciphertext
// is a few tens of MiB.
const DefaultMaxBlob = 256 << 20

// Server serves the gateway API.
type Server struct {
	queue    queue.Queue
	store    storage.Storage
	log      *zap.Logger
	gatherer prometheus.Gatherer
	maxBlob  int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

// WithGatherer exposes g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Server) { s.gatherer = g } }

// WithMaxBlob bounds the size of uploads.
func WithMaxBlob(n int64) Option { return func(s *Server) { s.maxBlob = n } }

// New returns a gateway over q and store.
func New(q queue.Queue, store storage.Storage, opts ...Option) *Server {
	s := &Server{
		queue:   q,
		store:   store,
		log:     zap.NewNop(),
		maxBlob: DefaultMaxBlob,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /blobs", s.handleStore)
	mux.HandleFunc("GET /blobs/{handle}", s.handleLoad)
	mux.HandleFunc("POST /jobs/review", s.handleSubmit(queue.KindReview, worker.InputBalance))
	mux.HandleFunc("POST /jobs/sign", s.handleSubmit(queue.KindSign, worker.InputMessage, worker.InputKey, worker.InputNonce))
	mux.HandleFunc("GET /jobs/{id}", s.handleJob)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return s.logRequests(corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrInvalidHandle):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, queue.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrStorageFull):
		status = http.StatusInsufficientStorage
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StoreResponse names an uploaded blob.
type StoreResponse struct {
	Handle string `json:"handle"`
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBlob))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "empty body"})
		return
	}
	h, err := s.store.Store(r.Context(), data)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, StoreResponse{Handle: string(h)})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.Load(r.Context(), storage.Handle(r.PathValue("handle")))
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

// JobResponse is the public view of a job.
type JobResponse struct {
	ID      string            `json:"id"`
	Kind    string            `json:"kind"`
	Status  string            `json:"status"`
	Results map[string]string `json:"results,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func jobResponse(j *queue.Job) JobResponse {
	return JobResponse{
		ID:      j.ID,
		Kind:    string(j.Kind),
		Status:  j.Status.String(),
		Results: j.Results,
		Error:   j.Error,
	}
}

// handleSubmit accepts a JSON object mapping each input name to a stored
// handle. Every input must already be uploaded.
func (s *Server) handleSubmit(kind queue.Kind, inputs ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		job := &queue.Job{ID: uuid.NewString(), Kind: kind, Inputs: make(map[string]string, len(inputs))}
		for _, name := range inputs {
			h, ok := req[name]
			if !ok {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing input " + name})
				return
			}
			exists, err := s.store.Exists(r.Context(), storage.Handle(h))
			if err == nil && !exists {
				err = errors.Wrapf(storage.ErrNotFound, "input %s", name)
			}
			if err != nil {
				s.fail(w, err)
				return
			}
			job.Inputs[name] = h
		}
		if err := s.queue.Push(r.Context(), job); err != nil {
			s.fail(w, err)
			return
		}
		s.log.Info("job submitted", zap.String("job", job.ID), zap.String("kind", string(kind)))
		writeJSON(w, http.StatusAccepted, jobResponse(job))
	}
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.queue.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse(job))
}
