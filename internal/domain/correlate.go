package domain

import (
	"math"
	"slices"
	"time"
)

// RiskLevel is the intervention tier of an area.
type RiskLevel string

const (
	RiskUrgent RiskLevel = "URGENT"
	RiskHigh   RiskLevel = "HIGH"
	RiskMedium RiskLevel = "MEDIUM"
	RiskLow    RiskLevel = "LOW"
	RiskNormal RiskLevel = "NORMAL"
)

// RiskLevels lists area tiers from most to least severe.
var RiskLevels = []RiskLevel{RiskUrgent, RiskHigh, RiskMedium, RiskLow, RiskNormal}

// Rank orders levels by severity: URGENT is 4, NORMAL is 0, unknown is -1.
func (l RiskLevel) Rank() int {
	switch l {
	case RiskUrgent:
		return 4
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	case RiskNormal:
		return 0
	default:
		return -1
	}
}

// RiskType is the dominant hazard kind across an area's assessments.
type RiskType string

const (
	RiskTypeDebris  RiskType = "DEBRIS"
	RiskTypeWater   RiskType = "WATER"
	RiskTypeBoth    RiskType = "BOTH"
	RiskTypeUnknown RiskType = "UNKNOWN"
	RiskTypeNone    RiskType = "NONE"
)

// DefaultCorrelationWindow is how far back health signals count as recent.
const DefaultCorrelationWindow = 30 * 24 * time.Hour

// CorrelationOptions tunes an Analyze pass.
type CorrelationOptions struct {
	// Window bounds signal recency in whole days; values under a day mean today only.
	Window time.Duration
	// UnifyGrid groups signals by the grid id of their coordinates instead of
	// their caller-supplied areaId.
	UnifyGrid bool
}

// DefaultCorrelationOptions returns a 30-day window keyed on caller area ids.
func DefaultCorrelationOptions() CorrelationOptions {
	return CorrelationOptions{Window: DefaultCorrelationWindow}
}

// AreaCorrelation is the joint environmental and health assessment of one area.
type AreaCorrelation struct {
	AreaID    string   `json:"areaId"`
	AreaName  string   `json:"areaName"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	AssessmentCount          int      `json:"assessmentCount"`
	AverageEnvironmentalRisk float64  `json:"averageEnvironmentalRisk"`
	PrimaryRiskType          RiskType `json:"primaryRiskType"`
	CriticalAssessments      int      `json:"criticalAssessments"`

	HealthSignalCount       int  `json:"healthSignalCount"`
	ElevatedSignalCount     int  `json:"elevatedSignalCount"`
	HasRespiratoryRisk      bool `json:"hasRespiratoryRisk"`
	HasGastrointestinalRisk bool `json:"hasGastrointestinalRisk"`
	HasSkinRisk             bool `json:"hasSkinRisk"`

	RiskLevel        RiskLevel `json:"riskLevel"`
	CorrelationScore int       `json:"correlationScore"`
	Recommendation   string    `json:"recommendation"`
	LinkedRisks      []string  `json:"linkedRisks"`
}

// OverallStats counts analyzed areas by risk level. MEDIUM and LOW share the
// monitor bucket.
type OverallStats struct {
	TotalAreasAnalyzed int `json:"totalAreasAnalyzed"`
	UrgentAreas        int `json:"urgentAreas"`
	HighRiskAreas      int `json:"highRiskAreas"`
	MonitorAreas       int `json:"monitorAreas"`
	NormalAreas        int `json:"normalAreas"`
}

// Correlation is the ranked result of an Analyze pass.
type Correlation struct {
	AreaCorrelations []AreaCorrelation `json:"areaCorrelations"`
	OverallStats     OverallStats      `json:"overallStats"`
}

// Analyze buckets assessments by grid cell and recent signals by area, scores
// each area, and ranks them by correlation score, highest first. Areas with
// equal scores keep discovery order: assessment areas first, then
// signal-only areas, each in input order.
func Analyze(assessments []Assessment, signals []HealthSignal, now time.Time, opts CorrelationOptions) Correlation {
	recent := RecentSignals(signals, now, opts.Window)

	var order []string
	seen := make(map[string]bool)
	track := func(id string) {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}

	byAreaAssessments := make(map[string][]Assessment)
	for _, a := range assessments {
		id := a.AreaID()
		track(id)
		byAreaAssessments[id] = append(byAreaAssessments[id], a)
	}

	byAreaSignals := make(map[string][]HealthSignal)
	for _, s := range recent {
		id := s.AreaID
		if opts.UnifyGrid {
			id = AreaIDFor(s.Latitude, s.Longitude)
		}
		track(id)
		byAreaSignals[id] = append(byAreaSignals[id], s)
	}

	areas := make([]AreaCorrelation, 0, len(order))
	for _, id := range order {
		areas = append(areas, correlateArea(id, byAreaAssessments[id], byAreaSignals[id]))
	}

	slices.SortStableFunc(areas, func(a, b AreaCorrelation) int {
		return b.CorrelationScore - a.CorrelationScore
	})

	return Correlation{
		AreaCorrelations: areas,
		OverallStats:     overallStats(areas),
	}
}

// WindowStart returns midnight UTC of the day window whole days before now.
// Windows under a day start today.
func WindowStart(now time.Time, window time.Duration) time.Time {
	days := int(window / (24 * time.Hour))
	return startOfDay(now).AddDate(0, 0, -days)
}

// RecentSignals keeps signals dated on or after WindowStart(now, window).
func RecentSignals(signals []HealthSignal, now time.Time, window time.Duration) []HealthSignal {
	cutoff := WindowStart(now, window)

	out := make([]HealthSignal, 0, len(signals))
	for _, s := range signals {
		if !startOfDay(s.SignalDate).Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

func correlateArea(areaID string, assessments []Assessment, signals []HealthSignal) AreaCorrelation {
	avgRisk := meanOverallRisk(assessments)
	critical := 0
	for _, a := range assessments {
		if a.Priority == PriorityCritical {
			critical++
		}
	}
	riskType := primaryRiskType(assessments)

	elevated := 0
	var resp, gi, skin bool
	for _, s := range signals {
		if s.Elevated() {
			elevated++
		}
		resp = resp || s.ElevatedOf(SignalRespiratory)
		gi = gi || s.ElevatedOf(SignalGastrointestinal)
		skin = skin || s.ElevatedOf(SignalSkin)
	}

	score := correlationScore(avgRisk, elevated, resp, gi, skin)
	level := riskLevelFor(score, avgRisk, elevated)

	c := AreaCorrelation{
		AreaID:                   areaID,
		AreaName:                 areaID,
		AssessmentCount:          len(assessments),
		AverageEnvironmentalRisk: roundTenth(avgRisk),
		PrimaryRiskType:          riskType,
		CriticalAssessments:      critical,
		HealthSignalCount:        len(signals),
		ElevatedSignalCount:      elevated,
		HasRespiratoryRisk:       resp,
		HasGastrointestinalRisk:  gi,
		HasSkinRisk:              skin,
		RiskLevel:                level,
		CorrelationScore:         score,
		Recommendation:           areaRecommendation(level, riskType, resp, gi, skin),
		LinkedRisks:              linkedRisks(riskType, resp, gi, skin),
	}

	switch {
	case len(signals) > 0:
		first := newestSignal(signals)
		c.AreaName = first.AreaName
		c.Latitude = ptr(first.Latitude)
		c.Longitude = ptr(first.Longitude)
	case len(assessments) > 0:
		first := assessments[0]
		c.AreaName = "Area " + areaID
		c.Latitude = ptr(first.Latitude)
		c.Longitude = ptr(first.Longitude)
	}
	return c
}

// newestSignal returns the latest-dated signal; the earliest in input order wins ties.
func newestSignal(signals []HealthSignal) HealthSignal {
	newest := signals[0]
	for _, s := range signals[1:] {
		if s.SignalDate.After(newest.SignalDate) {
			newest = s
		}
	}
	return newest
}

func meanOverallRisk(assessments []Assessment) float64 {
	if len(assessments) == 0 {
		return 0
	}
	sum := 0
	for _, a := range assessments {
		sum += a.OverallRisk
	}
	return float64(sum) / float64(len(assessments))
}

func primaryRiskType(assessments []Assessment) RiskType {
	if len(assessments) == 0 {
		return RiskTypeNone
	}
	debris, water := 0, 0
	for _, a := range assessments {
		if a.SiteType == SiteDebris || a.SiteType == SiteBoth {
			debris++
		}
		if a.SiteType == SiteWater || a.SiteType == SiteBoth {
			water++
		}
	}
	switch {
	case debris > 0 && water > 0:
		return RiskTypeBoth
	case debris > water:
		return RiskTypeDebris
	case water > 0:
		return RiskTypeWater
	default:
		return RiskTypeUnknown
	}
}

func correlationScore(avgRisk float64, elevated int, resp, gi, skin bool) int {
	score := min(50, int(math.Floor(avgRisk*0.5)))
	score += elevated * 10
	if resp && avgRisk > 70 {
		score += 20
	}
	if gi && avgRisk > 60 {
		score += 15
	}
	if skin && avgRisk > 50 {
		score += 10
	}
	return max(0, min(maxRisk, score))
}

// riskLevelFor applies the area tiers in order; the first match wins.
func riskLevelFor(score int, avgRisk float64, elevated int) RiskLevel {
	switch {
	case score >= 80 || (avgRisk >= 70 && elevated > 0):
		return RiskUrgent
	case score >= 60 || (avgRisk >= 50 && elevated > 0):
		return RiskHigh
	case score >= 40 || avgRisk >= 40 || elevated > 0:
		return RiskMedium
	case score >= 20 || avgRisk >= 20:
		return RiskLow
	default:
		return RiskNormal
	}
}

// Area recommendation texts.
const (
	AreaRecUrgentDust    = "URGENT: Immediate dust control and PPE required. Health impact detected."
	AreaRecUrgentWater   = "URGENT: Water contamination intervention needed immediately."
	AreaRecUrgent        = "URGENT: Immediate intervention required - multiple risk factors present."
	AreaRecHighResp      = "HIGH PRIORITY: Implement dust control measures and monitor respiratory health."
	AreaRecHighGI        = "HIGH PRIORITY: Water testing and hygiene measures needed."
	AreaRecHighSkin      = "HIGH PRIORITY: Improve sanitation and hygiene conditions."
	AreaRecHigh          = "HIGH PRIORITY: Enhanced monitoring and risk mitigation required."
	AreaRecMedium        = "Monitor closely. Environmental risk present but no health signals yet."
	AreaRecLow           = "Standard monitoring adequate. Low risk factors present."
	AreaRecNormal        = "Continue routine assessments."
	LinkedDebrisResp     = "High debris risk + Respiratory signals detected"
	LinkedWaterGI        = "Water contamination + Gastrointestinal signals detected"
	LinkedWaterSkin      = "Water/hygiene issues + Skin condition signals detected"
	LinkedRespNoDebris   = "Respiratory signals present - investigate environmental causes"
	LinkedGINoWater      = "Gastrointestinal signals present - check water sources"
	LinkedNoCorrelations = "No direct correlations detected"
)

func areaRecommendation(level RiskLevel, riskType RiskType, resp, gi, skin bool) string {
	switch level {
	case RiskUrgent:
		switch {
		// BOTH matches neither sub-case.
		case resp && riskType == RiskTypeDebris:
			return AreaRecUrgentDust
		case gi && riskType == RiskTypeWater:
			return AreaRecUrgentWater
		default:
			return AreaRecUrgent
		}
	case RiskHigh:
		switch {
		case resp:
			return AreaRecHighResp
		case gi:
			return AreaRecHighGI
		case skin:
			return AreaRecHighSkin
		default:
			return AreaRecHigh
		}
	case RiskMedium:
		return AreaRecMedium
	case RiskLow:
		return AreaRecLow
	default:
		return AreaRecNormal
	}
}

// linkedRisks pairs hazards with symptoms. Only a pure DEBRIS or WATER area
// counts as that hazard; BOTH falls through to the symptom-only entries.
func linkedRisks(riskType RiskType, resp, gi, skin bool) []string {
	debris, water := riskType == RiskTypeDebris, riskType == RiskTypeWater
	var risks []string
	if debris && resp {
		risks = append(risks, LinkedDebrisResp)
	}
	if water && gi {
		risks = append(risks, LinkedWaterGI)
	}
	if water && skin {
		risks = append(risks, LinkedWaterSkin)
	}
	if resp && !debris {
		risks = append(risks, LinkedRespNoDebris)
	}
	if gi && !water {
		risks = append(risks, LinkedGINoWater)
	}
	if len(risks) == 0 {
		risks = append(risks, LinkedNoCorrelations)
	}
	return risks
}

func overallStats(areas []AreaCorrelation) OverallStats {
	stats := OverallStats{TotalAreasAnalyzed: len(areas)}
	for _, a := range areas {
		switch a.RiskLevel {
		case RiskUrgent:
			stats.UrgentAreas++
		case RiskHigh:
			stats.HighRiskAreas++
		case RiskMedium, RiskLow:
			stats.MonitorAreas++
		case RiskNormal:
			stats.NormalAreas++
		}
	}
	return stats
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func ptr[T any](v T) *T { return &v }
