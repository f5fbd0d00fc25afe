package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/baxromumarov/hh-collector/internal/apperr"
	"github.com/baxromumarov/hh-collector/internal/observability"
	"github.com/baxromumarov/hh-collector/internal/store"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

func clampLimit(limit int, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

func parseLimit(r *http.Request) int {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	return clampLimit(limit, defaultLimit, maxLimit)
}

func limitSlice[T any](items []T, limit int) []T {
	if items == nil {
		return []T{}
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func (s *Server) fail(w http.ResponseWriter, err error, what string) {
	status := http.StatusInternalServerError
	switch apperr.TypeOf(err) {
	case apperr.ErrTypeNotFound:
		status = http.StatusNotFound
	case apperr.ErrTypeInvalidInput:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		observability.IncError(observability.ClassifyError(err), "api")
		s.logger.Error("query failed", zap.String("query", what), zap.Error(err))
	}
	respondError(w, status, "Failed to fetch "+what+": "+err.Error())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, observability.Snapshot())
}

func (s *Server) handleTopCompanies(w http.ResponseWriter, r *http.Request) {
	rows, err := s.queries.TopCompaniesByOpenVacancies(r.Context(), chi.URLParam(r, "db"))
	if err != nil {
		s.fail(w, err, "companies")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": limitSlice(rows, parseLimit(r)),
	})
}

func (s *Server) handleRankedVacancies(w http.ResponseWriter, r *http.Request) {
	rows, err := s.queries.AllVacanciesWithSalaryRank(r.Context(), chi.URLParam(r, "db"))
	if err != nil {
		s.fail(w, err, "vacancies")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": limitSlice(rows, parseLimit(r)),
	})
}

func (s *Server) handleAverageSalary(w http.ResponseWriter, r *http.Request) {
	avg, err := s.queries.AverageSalary(r.Context(), chi.URLParam(r, "db"))
	if err != nil {
		s.fail(w, err, "average salary")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"average_salary": avg})
}

// handleVacanciesAbove uses ?salary= as the threshold, or the current average when omitted.
func (s *Server) handleVacanciesAbove(w http.ResponseWriter, r *http.Request) {
	db := chi.URLParam(r, "db")

	var threshold int
	if v := r.URL.Query().Get("salary"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid salary")
			return
		}
		threshold = parsed
	} else {
		avg, err := s.queries.AverageSalary(r.Context(), db)
		if err != nil {
			s.fail(w, err, "average salary")
			return
		}
		threshold = avg
	}

	rows, err := s.queries.VacanciesAtOrAbove(r.Context(), db, threshold)
	if err != nil {
		s.fail(w, err, "vacancies")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"threshold": threshold,
		"items":     limitSlice(rows, parseLimit(r)),
	})
}

func (s *Server) handleVacanciesByKeyword(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		respondError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	rows, err := s.queries.VacanciesByKeyword(r.Context(), chi.URLParam(r, "db"), keyword)
	if err != nil {
		s.fail(w, err, "vacancies")
		return
	}
	store.SortBySalaryTo(rows)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"keyword": keyword,
		"items":   limitSlice(rows, parseLimit(r)),
	})
}
