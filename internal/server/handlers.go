package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ssamantle/ssamantle/internal/similarity"
)

// Not-ready reasons returned by the API. Clients branch on these, so they are
// part of the wire contract.
const (
	reasonTodayNotReady        = "today_not_ready"
	reasonEmptyWord            = "empty_word"
	reasonVectorStoreNotReady  = "vector_store_not_ready"
	reasonAnswerVectorNotReady = "answer_vector_not_ready"
	reasonGuessVectorNotFound  = "guess_vector_not_found"
	reasonSimilarityUndefined  = "similarity_undefined"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"vector_store_ready": s.store != nil,
		"cache_ready":        s.cache != nil,
	})
}

// handleToday reports the active date without revealing the answer word.
func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	st, ok := s.state.Get()
	if !ok {
		s.respondReason(w, http.StatusServiceUnavailable, reasonTodayNotReady)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":         st.Date,
		"vector_ready": st.HasVector(),
	})
}

type similarityRequest struct {
	Word string `json:"word"`
}

type similarityResponse struct {
	Word    string  `json:"word"`
	Score   float64 `json:"score"`
	Correct bool    `json:"correct"`
}

func (s *Server) handleSimilarity(w http.ResponseWriter, r *http.Request) {
	var req similarityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	word := strings.TrimSpace(req.Word)
	if word == "" {
		s.countSimilarity("rejected")
		s.respondReason(w, http.StatusBadRequest, reasonEmptyWord)
		return
	}

	st, ok := s.state.Get()
	if !ok {
		s.countSimilarity("not_ready")
		s.respondReason(w, http.StatusServiceUnavailable, reasonTodayNotReady)
		return
	}

	if word == st.Answer {
		s.countSimilarity("correct")
		s.respondJSON(w, http.StatusOK, similarityResponse{Word: word, Score: 1.0, Correct: true})
		return
	}
	if s.store == nil {
		s.countSimilarity("not_ready")
		s.respondReason(w, http.StatusServiceUnavailable, reasonVectorStoreNotReady)
		return
	}
	if !st.HasVector() {
		s.countSimilarity("not_ready")
		s.respondReason(w, http.StatusServiceUnavailable, reasonAnswerVectorNotReady)
		return
	}

	guessVec, err := s.store.GetVector(r.Context(), word)
	if err != nil {
		s.logger.Error("similarity lookup failed", zap.String("word", word), zap.Error(err))
		s.countSimilarity("error")
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if guessVec == nil {
		s.countSimilarity("unknown_word")
		s.respondReason(w, http.StatusNotFound, reasonGuessVectorNotFound)
		return
	}

	score, ok := similarity.Cosine(st.Vector, guessVec)
	if !ok {
		s.countSimilarity("undefined")
		s.respondReason(w, http.StatusUnprocessableEntity, reasonSimilarityUndefined)
		return
	}
	s.countSimilarity("ok")
	s.respondJSON(w, http.StatusOK, similarityResponse{Word: word, Score: score})
}

func (s *Server) handleAdminRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refreshNow == nil {
		s.respondError(w, http.StatusNotImplemented, "refresh not enabled")
		return
	}
	date := time.Now().In(s.location).Format("2006-01-02")
	s.logger.Info("manual refresh requested", zap.String("date", date))
	res, err := s.refreshNow(r.Context(), date)
	if err != nil {
		s.logger.Error("manual refresh failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"date":         res.State.Date,
		"vector_ready": res.State.HasVector(),
		"topk_size":    len(res.TopK),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := map[string]interface{}{}

	if st, ok := s.state.Get(); ok {
		resp["date"] = st.Date
		resp["vector_ready"] = st.HasVector()
	} else {
		resp["date"] = nil
		resp["vector_ready"] = false
	}

	if s.store != nil {
		resp["vector_store"] = map[string]interface{}{
			"type": s.store.Type(),
			"size": s.store.Size(),
		}
	}

	if s.cache != nil {
		active, err := s.cache.ActiveDate(ctx)
		if err != nil {
			s.logger.Error("status: read active date failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		cacheInfo := map[string]interface{}{"active_date": active}
		if active != "" {
			if topk, found, err := s.cache.TopK(ctx, active); err == nil && found {
				cacheInfo["topk_size"] = len(topk)
			}
		}
		resp["cache"] = cacheInfo
	}

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) countSimilarity(result string) {
	if s.metrics != nil {
		s.metrics.SimilarityTotal.WithLabelValues(result).Inc()
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) respondReason(w http.ResponseWriter, status int, reason string) {
	s.respondJSON(w, status, map[string]string{"reason": reason})
}
