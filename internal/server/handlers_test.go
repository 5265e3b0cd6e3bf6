package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ssamantle/ssamantle/internal/config"
	"github.com/ssamantle/ssamantle/internal/models"
	"github.com/ssamantle/ssamantle/internal/refresh"
	"github.com/ssamantle/ssamantle/internal/state"
	"github.com/ssamantle/ssamantle/internal/vectorsearch"
)

type fakeCacheReader struct {
	active string
	topk   []models.Neighbor
}

func (f *fakeCacheReader) ActiveDate(ctx context.Context) (string, error) {
	return f.active, nil
}

func (f *fakeCacheReader) TopK(ctx context.Context, date string) ([]models.Neighbor, bool, error) {
	if date != f.active {
		return nil, false, nil
	}
	return f.topk, true, nil
}

func testVectorStore(t *testing.T) *vectorsearch.MemoryStore {
	t.Helper()
	store, err := vectorsearch.NewMemoryStore(3)
	if err != nil {
		t.Fatal(err)
	}
	err = store.Add(context.Background(),
		[]string{"apple", "banana", "zero"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 0}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func newTestServer(t *testing.T, st *state.Store, store vectorsearch.Store, cacheReader CacheReader, refreshNow RefreshFunc) *Server {
	t.Helper()
	cfg := &config.ServerConfig{Host: "localhost", Port: 0}
	return NewServer(st, store, cacheReader, refreshNow, time.UTC, cfg, zap.NewNop())
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %s", rec.Body.String())
		}
	}
	return rec, decoded
}

func publishedState() *state.Store {
	st := state.NewStore()
	st.Set(models.AnswerState{Date: "2024-06-01", Answer: "apple", Vector: []float32{1, 0, 0}})
	return st
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, state.NewStore(), nil, nil, nil)
	rec, body := doJSON(t, s, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("got %d %v", rec.Code, body)
	}
	if body["vector_store_ready"] != false || body["cache_ready"] != false {
		t.Errorf("readiness flags: got %v", body)
	}
}

func TestHandleToday_notReady(t *testing.T) {
	s := newTestServer(t, state.NewStore(), nil, nil, nil)
	rec, body := doJSON(t, s, http.MethodGet, "/api/v1/today", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d", rec.Code)
	}
	if body["reason"] != reasonTodayNotReady {
		t.Errorf("reason: got %v", body["reason"])
	}
}

func TestHandleToday_neverRevealsAnswer(t *testing.T) {
	s := newTestServer(t, publishedState(), nil, nil, nil)
	rec, body := doJSON(t, s, http.MethodGet, "/api/v1/today", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if body["date"] != "2024-06-01" || body["vector_ready"] != true {
		t.Errorf("got %v", body)
	}
	if _, leaked := body["answer"]; leaked {
		t.Error("answer word leaked in today response")
	}
}

func TestHandleSimilarity_emptyWord(t *testing.T) {
	s := newTestServer(t, publishedState(), testVectorStore(t), nil, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/similarity", similarityRequest{Word: "   "})
	if rec.Code != http.StatusBadRequest || body["reason"] != reasonEmptyWord {
		t.Errorf("got %d %v", rec.Code, body)
	}
}

func TestHandleSimilarity_todayNotReady(t *testing.T) {
	s := newTestServer(t, state.NewStore(), testVectorStore(t), nil, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/similarity", similarityRequest{Word: "apple"})
	if rec.Code != http.StatusServiceUnavailable || body["reason"] != reasonTodayNotReady {
		t.Errorf("got %d %v", rec.Code, body)
	}
}

func TestHandleSimilarity_correctGuess(t *testing.T) {
	// The correct word scores 1.0 even when the vector store is down.
	s := newTestServer(t, publishedState(), nil, nil, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/similarity", similarityRequest{Word: "apple"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d %v", rec.Code, body)
	}
	if body["correct"] != true || body["score"] != 1.0 {
		t.Errorf("got %v", body)
	}
}

func TestHandleSimilarity_vectorStoreNotReady(t *testing.T) {
	s := newTestServer(t, publishedState(), nil, nil, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/similarity", similarityRequest{Word: "banana"})
	if rec.Code != http.StatusServiceUnavailable || body["reason"] != reasonVectorStoreNotReady {
		t.Errorf("got %d %v", rec.Code, body)
	}
}

func TestHandleSimilarity_answerVectorNotReady(t *testing.T) {
	st := state.NewStore()
	st.Set(models.AnswerState{Date: "2024-06-01", Answer: "apple"})
	s := newTestServer(t, st, testVectorStore(t), nil, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/similarity", similarityRequest{Word: "banana"})
	if rec.Code != http.StatusServiceUnavailable || body["reason"] != reasonAnswerVectorNotReady {
		t.Errorf("got %d %v", rec.Code, body)
	}
}

func TestHandleSimilarity_unknownGuess(t *testing.T) {
	s := newTestServer(t, publishedState(), testVectorStore(t), nil, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/similarity", similarityRequest{Word: "cherry"})
	if rec.Code != http.StatusNotFound || body["reason"] != reasonGuessVectorNotFound {
		t.Errorf("got %d %v", rec.Code, body)
	}
}

func TestHandleSimilarity_undefinedScore(t *testing.T) {
	s := newTestServer(t, publishedState(), testVectorStore(t), nil, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/similarity", similarityRequest{Word: "zero"})
	if rec.Code != http.StatusUnprocessableEntity || body["reason"] != reasonSimilarityUndefined {
		t.Errorf("got %d %v", rec.Code, body)
	}
}

func TestHandleSimilarity_score(t *testing.T) {
	s := newTestServer(t, publishedState(), testVectorStore(t), nil, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/similarity", similarityRequest{Word: "banana"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d %v", rec.Code, body)
	}
	score, ok := body["score"].(float64)
	if !ok || score != 0 {
		t.Errorf("orthogonal words should score 0: %v", body)
	}
	if body["correct"] == true {
		t.Error("wrong word flagged correct")
	}
}

func TestHandleAdminRefresh(t *testing.T) {
	var gotDate string
	refreshNow := func(ctx context.Context, date string) (*refresh.Result, error) {
		gotDate = date
		return &refresh.Result{
			State: models.AnswerState{Date: date, Answer: "apple", Vector: []float32{1, 0, 0}},
			TopK:  []models.Neighbor{{Word: "banana", Score: 0.5}},
		}, nil
	}
	s := newTestServer(t, publishedState(), nil, nil, refreshNow)
	rec, body := doJSON(t, s, http.MethodPost, "/api/v1/admin/refresh", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d %v", rec.Code, body)
	}
	if gotDate == "" {
		t.Error("refresh func not invoked")
	}
	if body["topk_size"] != float64(1) || body["vector_ready"] != true {
		t.Errorf("got %v", body)
	}
}

func TestHandleAdminRefresh_error(t *testing.T) {
	refreshNow := func(ctx context.Context, date string) (*refresh.Result, error) {
		return nil, errors.New("source offline")
	}
	s := newTestServer(t, publishedState(), nil, nil, refreshNow)
	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/admin/refresh", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d", rec.Code)
	}
}

func TestHandleAdminRefresh_notEnabled(t *testing.T) {
	s := newTestServer(t, publishedState(), nil, nil, nil)
	rec, _ := doJSON(t, s, http.MethodPost, "/api/v1/admin/refresh", nil)
	if rec.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d", rec.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	reader := &fakeCacheReader{
		active: "2024-06-01",
		topk:   []models.Neighbor{{Word: "banana", Score: 0.5}, {Word: "grape", Score: 0.3}},
	}
	s := newTestServer(t, publishedState(), testVectorStore(t), reader, nil)
	rec, body := doJSON(t, s, http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d %v", rec.Code, body)
	}
	if body["date"] != "2024-06-01" {
		t.Errorf("date: got %v", body["date"])
	}
	vs, ok := body["vector_store"].(map[string]interface{})
	if !ok || vs["type"] != "memory" || vs["size"] != float64(3) {
		t.Errorf("vector_store: got %v", body["vector_store"])
	}
	cacheInfo, ok := body["cache"].(map[string]interface{})
	if !ok || cacheInfo["active_date"] != "2024-06-01" || cacheInfo["topk_size"] != float64(2) {
		t.Errorf("cache: got %v", body["cache"])
	}
}

func TestHandleStatus_degraded(t *testing.T) {
	s := newTestServer(t, state.NewStore(), nil, nil, nil)
	rec, body := doJSON(t, s, http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if body["vector_ready"] != false {
		t.Errorf("got %v", body)
	}
	if _, present := body["vector_store"]; present {
		t.Error("vector_store reported while absent")
	}
}
