package httpadapter

import (
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/healthmap-risk-service/internal/domain"
	"github.com/couchcryptid/healthmap-risk-service/internal/service"
	"github.com/gorilla/mux"
)

const dateLayout = "2006-01-02"

// signalRequest is the wire form of domain.HealthSignalRequest. signalDate is
// a calendar date; empty means today.
type signalRequest struct {
	AreaID      string              `json:"areaId"`
	AreaName    string              `json:"areaName"`
	SignalDate  string              `json:"signalDate"`
	SignalType  domain.SignalType   `json:"signalType"`
	SignalLevel domain.SignalLevel  `json:"signalLevel"`
	Source      domain.SignalSource `json:"source"`
	Notes       string              `json:"notes"`
	Latitude    *float64            `json:"latitude"`
	Longitude   *float64            `json:"longitude"`
	ReportedBy  string              `json:"reportedBy"`
}

func (req signalRequest) toDomain() (domain.HealthSignalRequest, error) {
	out := domain.HealthSignalRequest{
		AreaID:      req.AreaID,
		AreaName:    req.AreaName,
		SignalType:  req.SignalType,
		SignalLevel: req.SignalLevel,
		Source:      req.Source,
		Notes:       req.Notes,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		ReportedBy:  req.ReportedBy,
	}
	if req.SignalDate != "" {
		d, err := parseDate("signalDate", req.SignalDate)
		if err != nil {
			return domain.HealthSignalRequest{}, err
		}
		out.SignalDate = d
	}
	return out, nil
}

// parseDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDate(field, v string) (time.Time, error) {
	if d, err := time.Parse(dateLayout, v); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Time{}, domain.ValidationError(field, "must be a date in YYYY-MM-DD form")
}

func (s *Server) createSignal(w http.ResponseWriter, r *http.Request) {
	var body signalRequest
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := body.toDomain()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sig, err := s.svc.RecordSignal(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cache.invalidate()
	writeJSON(w, http.StatusCreated, toSignalResponse(sig))
}

func (s *Server) getSignal(w http.ResponseWriter, r *http.Request) {
	sig, err := s.svc.Signal(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSignalResponse(sig))
}

func (s *Server) deleteSignal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteSignal(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cache.invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSignals(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Signals(r.Context())
	s.writeSignals(w, r, list, err)
}

func (s *Server) recentSignals(w http.ResponseWriter, r *http.Request) {
	days := service.DefaultRecentSignalDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, domain.ValidationError("days", "must be an integer"))
			return
		}
		days = n
	}
	list, err := s.svc.RecentSignals(r.Context(), days)
	s.writeSignals(w, r, list, err)
}

func (s *Server) signalsBetween(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		s.writeError(w, r, domain.ValidationError("from and to", "are required"))
		return
	}
	from, err := parseDate("from", q.Get("from"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := parseDate("to", q.Get("to"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list, err := s.svc.SignalsBetween(r.Context(), from, to)
	s.writeSignals(w, r, list, err)
}

func (s *Server) signalsByArea(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.SignalsByArea(r.Context(), mux.Vars(r)["areaId"])
	s.writeSignals(w, r, list, err)
}

func (s *Server) elevatedAreas(w http.ResponseWriter, r *http.Request) {
	ids, err := s.svc.ElevatedAreas(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ids)
}

func (s *Server) signalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.SignalStats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) writeSignals(w http.ResponseWriter, r *http.Request, list []domain.HealthSignal, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSignalResponses(list))
}
