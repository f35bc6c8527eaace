package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // headers already sent
}

// writeError maps domain errors to status codes. Unexpected errors are
// logged and reported as 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	default:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ValidationError("body", fmt.Sprintf("is not valid JSON: %v", err))
	}
	return nil
}

// assessmentResponse is an assessment with its recommendation text.
type assessmentResponse struct {
	domain.Assessment
	Recommendation string `json:"recommendation"`
}

func toAssessmentResponse(a domain.Assessment) assessmentResponse {
	return assessmentResponse{Assessment: a, Recommendation: a.Recommendation()}
}

func toAssessmentResponses(list []domain.Assessment) []assessmentResponse {
	out := make([]assessmentResponse, len(list))
	for i, a := range list {
		out[i] = toAssessmentResponse(a)
	}
	return out
}

// signalResponse is a health signal with its display metadata.
type signalResponse struct {
	domain.HealthSignal
	SignalDate         string `json:"signalDate"`
	SignalTypeDisplay  string `json:"signalTypeDisplay"`
	SignalTypeIcon     string `json:"signalTypeIcon"`
	SignalLevelDisplay string `json:"signalLevelDisplay"`
	SignalLevelIcon    string `json:"signalLevelIcon"`
	SourceDisplay      string `json:"sourceDisplay"`
}

func toSignalResponse(sig domain.HealthSignal) signalResponse {
	resp := signalResponse{HealthSignal: sig, SignalDate: sig.SignalDate.Format(dateLayout)}
	if info, ok := domain.SignalTypeInfoFor(sig.SignalType); ok {
		resp.SignalTypeDisplay, resp.SignalTypeIcon = info.DisplayName, info.Icon
	}
	if info, ok := domain.SignalLevelInfoFor(sig.SignalLevel); ok {
		resp.SignalLevelDisplay, resp.SignalLevelIcon = info.DisplayName, info.Icon
	}
	if info, ok := domain.SignalSourceInfoFor(sig.Source); ok {
		resp.SourceDisplay = info.DisplayName
	}
	return resp
}

func toSignalResponses(list []domain.HealthSignal) []signalResponse {
	out := make([]signalResponse, len(list))
	for i, sig := range list {
		out[i] = toSignalResponse(sig)
	}
	return out
}
