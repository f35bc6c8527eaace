package httpadapter

import (
	"context"
	"net/http"
	"strconv"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	"github.com/gorilla/mux"
)

const defaultHighRiskMin = 70

func (s *Server) createAssessment(w http.ResponseWriter, r *http.Request) {
	var req domain.AssessmentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.svc.ScoreAndPersist(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cache.invalidate()
	writeJSON(w, http.StatusCreated, toAssessmentResponse(a))
}

func (s *Server) updateAssessment(w http.ResponseWriter, r *http.Request) {
	var req domain.AssessmentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.svc.RescoreAndPersist(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cache.invalidate()
	writeJSON(w, http.StatusOK, toAssessmentResponse(a))
}

func (s *Server) getAssessment(w http.ResponseWriter, r *http.Request) {
	a, err := s.svc.Assessment(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssessmentResponse(a))
}

func (s *Server) deleteAssessment(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteAssessment(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cache.invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listAssessments(w http.ResponseWriter, r *http.Request) {
	s.writeAssessments(w, r, s.svc.Assessments)
}

func (s *Server) prioritizedAssessments(w http.ResponseWriter, r *http.Request) {
	s.writeAssessments(w, r, s.svc.PrioritizedAssessments)
}

func (s *Server) recentAssessments(w http.ResponseWriter, r *http.Request) {
	s.writeAssessments(w, r, s.svc.RecentAssessments)
}

func (s *Server) highRiskAssessments(w http.ResponseWriter, r *http.Request) {
	minRisk := defaultHighRiskMin
	if v := r.URL.Query().Get("min"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, domain.ValidationError("min", "must be an integer"))
			return
		}
		minRisk = n
	}
	list, err := s.svc.HighRiskAssessments(r.Context(), minRisk)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssessmentResponses(list))
}

func (s *Server) assessmentsGeoJSON(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Assessments(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newFeatureCollection(list))
}

func (s *Server) writeAssessments(w http.ResponseWriter, r *http.Request, list func(context.Context) ([]domain.Assessment, error)) {
	out, err := list(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssessmentResponses(out))
}
