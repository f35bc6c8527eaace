package domain

// AssessmentStats is the roll-up of stored assessments.
type AssessmentStats struct {
	TotalAssessments     int              `json:"totalAssessments"`
	CriticalCount        int              `json:"criticalCount"`
	HighCount            int              `json:"highCount"`
	MediumCount          int              `json:"mediumCount"`
	LowCount             int              `json:"lowCount"`
	AverageAsbestosRisk  float64          `json:"averageAsbestosRisk"`
	AverageWaterRisk     float64          `json:"averageWaterRisk"`
	AverageOverallRisk   float64          `json:"averageOverallRisk"`
	RiskDistribution     map[Priority]int `json:"riskDistribution"`
	SiteTypeDistribution map[SiteType]int `json:"siteTypeDistribution"`
}

// SummarizeAssessments counts assessments by priority and site type and
// averages their risks, rounded to one decimal.
func SummarizeAssessments(assessments []Assessment) AssessmentStats {
	stats := AssessmentStats{
		TotalAssessments: len(assessments),
		RiskDistribution: map[Priority]int{
			PriorityCritical: 0, PriorityHigh: 0, PriorityMedium: 0, PriorityLow: 0,
		},
		SiteTypeDistribution: map[SiteType]int{
			SiteDebris: 0, SiteWater: 0, SiteBoth: 0,
		},
	}
	if len(assessments) == 0 {
		return stats
	}

	var asbestos, water, overall int
	for _, a := range assessments {
		asbestos += a.AsbestosRisk
		water += a.WaterRisk
		overall += a.OverallRisk
		if a.Priority.Valid() {
			stats.RiskDistribution[a.Priority]++
		}
		if a.SiteType.Valid() {
			stats.SiteTypeDistribution[a.SiteType]++
		}
	}

	n := float64(len(assessments))
	stats.AverageAsbestosRisk = roundTenth(float64(asbestos) / n)
	stats.AverageWaterRisk = roundTenth(float64(water) / n)
	stats.AverageOverallRisk = roundTenth(float64(overall) / n)
	stats.CriticalCount = stats.RiskDistribution[PriorityCritical]
	stats.HighCount = stats.RiskDistribution[PriorityHigh]
	stats.MediumCount = stats.RiskDistribution[PriorityMedium]
	stats.LowCount = stats.RiskDistribution[PriorityLow]
	return stats
}

// AreaSignalSummary is the per-area slice of SignalStats.
type AreaSignalSummary struct {
	AreaName                 string `json:"areaName"`
	TotalSignals             int    `json:"totalSignals"`
	RespiratoryElevated      int    `json:"respiratoryElevated"`
	GastrointestinalElevated int    `json:"gastrointestinalElevated"`
	SkinElevated             int    `json:"skinElevated"`
	HasRisk                  bool   `json:"hasRisk"`
}

// SignalStats is the roll-up of stored health signals.
type SignalStats struct {
	TotalSignals    int                          `json:"totalSignals"`
	ElevatedSignals int                          `json:"elevatedSignals"`
	NormalSignals   int                          `json:"normalSignals"`
	SignalsByType   map[string]int               `json:"signalsByType"`
	ElevatedByType  map[string]int               `json:"elevatedByType"`
	SignalsByArea   map[string]AreaSignalSummary `json:"signalsByArea"`
}

// SummarizeSignals counts signals by elevation, by type display name, and by
// caller-supplied area id. Area names come from the first signal seen.
func SummarizeSignals(signals []HealthSignal) SignalStats {
	stats := SignalStats{
		TotalSignals:   len(signals),
		SignalsByType:  make(map[string]int),
		ElevatedByType: make(map[string]int),
		SignalsByArea:  make(map[string]AreaSignalSummary),
	}

	for _, s := range signals {
		name := string(s.SignalType)
		if info, ok := SignalTypeInfoFor(s.SignalType); ok {
			name = info.DisplayName
		}
		stats.SignalsByType[name]++
		if s.Elevated() {
			stats.ElevatedSignals++
			stats.ElevatedByType[name]++
		}

		area, ok := stats.SignalsByArea[s.AreaID]
		if !ok {
			area.AreaName = s.AreaName
		}
		area.TotalSignals++
		switch {
		case s.ElevatedOf(SignalRespiratory):
			area.RespiratoryElevated++
		case s.ElevatedOf(SignalGastrointestinal):
			area.GastrointestinalElevated++
		case s.ElevatedOf(SignalSkin):
			area.SkinElevated++
		}
		area.HasRisk = area.RespiratoryElevated > 0 || area.GastrointestinalElevated > 0 || area.SkinElevated > 0
		stats.SignalsByArea[s.AreaID] = area
	}

	stats.NormalSignals = stats.TotalSignals - stats.ElevatedSignals
	return stats
}
