package domain

import (
	"strings"
	"time"
)

// SignalType is the symptom class of a community health report.
type SignalType string

const (
	SignalRespiratory      SignalType = "RESPIRATORY"
	SignalGastrointestinal SignalType = "GASTROINTESTINAL"
	SignalSkin             SignalType = "SKIN"
)

// SignalTypes lists the symptom classes in display order.
var SignalTypes = []SignalType{SignalRespiratory, SignalGastrointestinal, SignalSkin}

// SignalLevel says whether a report is above the reporter's baseline.
type SignalLevel string

const (
	LevelNormal   SignalLevel = "NORMAL"
	LevelElevated SignalLevel = "ELEVATED"
)

// SignalSource identifies who filed the report.
type SignalSource string

const (
	SourceClinic       SignalSource = "CLINIC"
	SourceFieldTeam    SignalSource = "FIELD_TEAM"
	SourceMobileUnit   SignalSource = "MOBILE_UNIT"
	SourceOrganization SignalSource = "ORGANIZATION"
)

// SignalTypeInfo is the presentation metadata of a SignalType.
type SignalTypeInfo struct {
	DisplayName    string `json:"displayName"`
	Icon           string `json:"icon"`
	RelatedFactors string `json:"relatedFactors"`
}

// SignalLevelInfo is the presentation metadata of a SignalLevel.
type SignalLevelInfo struct {
	DisplayName string `json:"displayName"`
	Icon        string `json:"icon"`
}

// SignalSourceInfo is the presentation metadata of a SignalSource.
type SignalSourceInfo struct {
	DisplayName string `json:"displayName"`
}

var signalTypeInfo = map[SignalType]SignalTypeInfo{
	SignalRespiratory:      {DisplayName: "Respiratory", Icon: "🔴", RelatedFactors: "Dust, debris, old materials"},
	SignalGastrointestinal: {DisplayName: "Gastrointestinal", Icon: "🟠", RelatedFactors: "Contaminated water, sewage"},
	SignalSkin:             {DisplayName: "Skin", Icon: "🟡", RelatedFactors: "Water contamination, hygiene conditions"},
}

var signalLevelInfo = map[SignalLevel]SignalLevelInfo{
	LevelNormal:   {DisplayName: "Normal", Icon: "🟢"},
	LevelElevated: {DisplayName: "Elevated", Icon: "🔴"},
}

var signalSourceInfo = map[SignalSource]SignalSourceInfo{
	SourceClinic:       {DisplayName: "Clinic"},
	SourceFieldTeam:    {DisplayName: "Field Team"},
	SourceMobileUnit:   {DisplayName: "Mobile Unit"},
	SourceOrganization: {DisplayName: "Organization"},
}

// SignalTypeInfoFor looks up presentation metadata. ok is false for unknown types.
func SignalTypeInfoFor(t SignalType) (info SignalTypeInfo, ok bool) {
	info, ok = signalTypeInfo[t]
	return info, ok
}

// SignalLevelInfoFor looks up presentation metadata. ok is false for unknown levels.
func SignalLevelInfoFor(l SignalLevel) (info SignalLevelInfo, ok bool) {
	info, ok = signalLevelInfo[l]
	return info, ok
}

// SignalSourceInfoFor looks up presentation metadata. ok is false for unknown sources.
func SignalSourceInfoFor(s SignalSource) (info SignalSourceInfo, ok bool) {
	info, ok = signalSourceInfo[s]
	return info, ok
}

// HealthSignal is one community health report for a named area.
type HealthSignal struct {
	ID          string       `json:"id"`
	AreaID      string       `json:"areaId"`
	AreaName    string       `json:"areaName"`
	SignalDate  time.Time    `json:"signalDate"` // midnight UTC
	SignalType  SignalType   `json:"signalType"`
	SignalLevel SignalLevel  `json:"signalLevel"`
	Source      SignalSource `json:"source"`
	Notes       string       `json:"notes,omitempty"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	ReportedBy  string       `json:"reportedBy,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Elevated reports whether the signal is above baseline.
func (s HealthSignal) Elevated() bool {
	return s.SignalLevel == LevelElevated
}

// ElevatedOf reports whether the signal is an elevated report of type t.
func (s HealthSignal) ElevatedOf(t SignalType) bool {
	return s.Elevated() && s.SignalType == t
}

// HealthSignalRequest carries the caller-supplied fields of a new signal.
// A zero SignalDate defaults to today.
type HealthSignalRequest struct {
	AreaID      string       `json:"areaId" yaml:"areaId"`
	AreaName    string       `json:"areaName" yaml:"areaName"`
	SignalDate  time.Time    `json:"signalDate" yaml:"signalDate"`
	SignalType  SignalType   `json:"signalType" yaml:"signalType"`
	SignalLevel SignalLevel  `json:"signalLevel" yaml:"signalLevel"`
	Source      SignalSource `json:"source" yaml:"source"`
	Notes       string       `json:"notes,omitempty" yaml:"notes,omitempty"`
	Latitude    *float64     `json:"latitude" yaml:"latitude"`
	Longitude   *float64     `json:"longitude" yaml:"longitude"`
	ReportedBy  string       `json:"reportedBy,omitempty" yaml:"reportedBy,omitempty"`
}

// NewHealthSignal validates a create request and returns an unsaved signal.
func NewHealthSignal(req HealthSignalRequest) (HealthSignal, error) {
	if strings.TrimSpace(req.AreaID) == "" {
		return HealthSignal{}, ValidationError("areaId", "is required")
	}
	if strings.TrimSpace(req.AreaName) == "" {
		return HealthSignal{}, ValidationError("areaName", "is required")
	}
	if _, ok := SignalTypeInfoFor(req.SignalType); !ok {
		return HealthSignal{}, ValidationError("signalType", "must be one of RESPIRATORY, GASTROINTESTINAL, SKIN")
	}
	if _, ok := SignalLevelInfoFor(req.SignalLevel); !ok {
		return HealthSignal{}, ValidationError("signalLevel", "must be one of NORMAL, ELEVATED")
	}
	if _, ok := SignalSourceInfoFor(req.Source); !ok {
		return HealthSignal{}, ValidationError("source", "must be one of CLINIC, FIELD_TEAM, MOBILE_UNIT, ORGANIZATION")
	}
	if req.Latitude == nil {
		return HealthSignal{}, ValidationError("latitude", "is required")
	}
	if req.Longitude == nil {
		return HealthSignal{}, ValidationError("longitude", "is required")
	}

	date := Today()
	if !req.SignalDate.IsZero() {
		date = startOfDay(req.SignalDate)
	}

	now := Now()
	return HealthSignal{
		AreaID:      req.AreaID,
		AreaName:    req.AreaName,
		SignalDate:  date,
		SignalType:  req.SignalType,
		SignalLevel: req.SignalLevel,
		Source:      req.Source,
		Notes:       req.Notes,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		ReportedBy:  req.ReportedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
