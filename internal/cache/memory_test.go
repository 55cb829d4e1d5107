package cache

import (
	"errors"
	"testing"
	"time"

	"interview-insights-go/internal/types"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	rec := &types.ProcessingRequest{
		RequestID: "abc",
		Status:    types.StatusProcessing,
		Stage:     types.StagePreprocessing,
		Progress:  10,
	}
	if err := s.Set("abc", rec, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := s.Get("abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != types.StagePreprocessing || got.Progress != 10 {
		t.Errorf("got %+v", got)
	}

	// mutations on the returned record must not leak into the store
	got.Progress = 99
	again, _ := s.Get("abc")
	if again.Progress != 10 {
		t.Errorf("store record mutated through returned pointer: %d", again.Progress)
	}
}

func TestMemoryStoreMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
	if err := s.Delete("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete missing = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	rec := &types.ProcessingRequest{RequestID: "soon", Status: types.StatusCompleted}
	if err := s.Set("soon", rec, 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := s.Get("soon"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := s.Get("soon"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after expiry = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	rec := &types.ProcessingRequest{RequestID: "gone"}
	_ = s.Set("gone", rec, 0)
	if err := s.Delete("gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("record survived delete: %v", err)
	}
}
