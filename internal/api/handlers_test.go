package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"interview-insights-go/internal/analysis"
	"interview-insights-go/internal/audio"
	"interview-insights-go/internal/cache"
	"interview-insights-go/internal/chunker"
	"interview-insights-go/internal/normalizer"
	"interview-insights-go/internal/pipeline"
	"interview-insights-go/internal/rules"
	"interview-insights-go/internal/transcription"
	"interview-insights-go/internal/types"
)

// newTestServer builds a server whose pool is never started, so submissions
// queue without running.
func newTestServer(store cache.Store, queueSize int) *Server {
	tables := rules.Defaults()
	orch := pipeline.NewOrchestrator(
		audio.NewPreprocessor(),
		audio.NewSplitter(),
		transcription.NewAdapter(transcription.NewGatewayClient("", "", ""), "en", true),
		normalizer.New(tables),
		chunker.New(chunker.NewTokenizer(), tables),
		analysis.New(tables),
		store,
		pipeline.DefaultRetryPolicy(),
	)
	return NewServer(pipeline.NewPool(orch, queueSize), store, 10*1024*1024)
}

func multipartUpload(t *testing.T, filename string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("audio", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte("fake-wav-bytes")); err != nil {
		t.Fatalf("write file part: %v", err)
	}
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"candidate_id": "7",
		"job_id":       "3",
		"language":     "en",
	}
}

func TestProcessAcceptsWavUpload(t *testing.T) {
	s := newTestServer(cache.NewMemoryStore(), 4)
	body, contentType := multipartUpload(t, "call.wav", validFields())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/call/process", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (%s)", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["request_id"] == "" || resp["status"] != "processing" {
		t.Errorf("response = %v", resp)
	}
}

func TestProcessStatusVisibleBeforeWorkerPickup(t *testing.T) {
	store := cache.NewMemoryStore()
	s := newTestServer(store, 4) // pool never started, nothing dequeues
	body, contentType := multipartUpload(t, "call.wav", validFields())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/call/process", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("upload = %d (%s)", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/call/status/"+resp["request_id"], nil)
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status poll = %d, want 200 right after submission", rr.Code)
	}
	var status map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &status)
	if status["stage"] != "pending" || status["progress"] != float64(0) {
		t.Errorf("status payload = %v, want pending/0", status)
	}

	rec, err := store.Get(resp["request_id"])
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.CreatedAt.IsZero() || rec.CandidateID != 7 || rec.JobID != 3 {
		t.Errorf("pending record incomplete: %+v", rec)
	}
}

func TestProcessRejectsInvalidCorrelationIDs(t *testing.T) {
	s := newTestServer(cache.NewMemoryStore(), 4)
	cases := []map[string]string{
		{"candidate_id": "abc", "job_id": "3"},
		{"candidate_id": "7", "job_id": "-3"},
		{"candidate_id": "0", "job_id": "3"},
		{"job_id": "3"}, // candidate_id missing
	}
	for _, fields := range cases {
		body, contentType := multipartUpload(t, "call.wav", fields)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/call/process", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("fields %v: status = %d, want 400", fields, rr.Code)
		}
	}
}

func TestProcessRejectsNonWav(t *testing.T) {
	s := newTestServer(cache.NewMemoryStore(), 4)
	body, contentType := multipartUpload(t, "call.mp3", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/call/process", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rr.Code)
	}
}

func TestProcessRejectsMissingFile(t *testing.T) {
	s := newTestServer(cache.NewMemoryStore(), 4)
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("language", "en")
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/call/process", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestProcessQueueFull(t *testing.T) {
	store := cache.NewMemoryStore()
	s := newTestServer(store, 1)

	for i, want := range []int{http.StatusAccepted, http.StatusServiceUnavailable} {
		body, contentType := multipartUpload(t, "call.wav", validFields())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/call/process", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()
		s.Router().ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("upload %d: status = %d, want %d", i, rr.Code, want)
		}
	}
	if n := store.Len(); n != 1 {
		t.Errorf("store has %d records, want 1 (rejected submission must be cleaned up)", n)
	}
}

func TestStatusAndResultLookups(t *testing.T) {
	store := cache.NewMemoryStore()
	now := time.Now().UTC()
	rec := &types.ProcessingRequest{
		RequestID:   "known",
		Status:      types.StatusCompleted,
		Stage:       types.StageCompleted,
		Progress:    100,
		CreatedAt:   now,
		CompletedAt: &now,
		Result:      &types.CallResult{},
	}
	if err := store.Set("known", rec, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s := newTestServer(store, 4)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/call/status/known", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status lookup = %d", rr.Code)
	}
	var status map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &status)
	if status["status"] != "completed" || status["progress"] != float64(100) {
		t.Errorf("status payload = %v", status)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/call/result/known", nil)
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("result lookup = %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/call/result/unknown", nil)
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing result = %d, want 404", rr.Code)
	}
}

func TestDeleteResult(t *testing.T) {
	store := cache.NewMemoryStore()
	_ = store.Set("gone", &types.ProcessingRequest{RequestID: "gone"}, 0)
	s := newTestServer(store, 4)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/call/result/gone", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete = %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/v1/call/result/gone", nil)
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete = %d, want 404", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(cache.NewMemoryStore(), 4)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rr.Code)
	}
}
