package domain

import (
	"math"
	"strings"
)

const (
	asbestosWeight = 0.6
	waterWeight    = 0.4
	maxRisk        = 100
)

// Score derives asbestos, water, and overall risk, the priority tier, and a
// material-type guess from field indicators. It is total: every observation
// yields a result.
func Score(o Observation) ScoredFields {
	asbestos := asbestosRisk(o)
	water := waterRisk(o)
	overall := overallRisk(asbestos, water)
	return ScoredFields{
		MaterialType: materialType(o),
		AsbestosRisk: asbestos,
		WaterRisk:    water,
		OverallRisk:  overall,
		Priority:     priorityFor(overall),
	}
}

func asbestosRisk(o Observation) int {
	risk := 0
	switch o.BuildingAge {
	case BuildingOld:
		risk += 30
	case BuildingUnknown:
		risk += 15
	}
	if o.OldMaterials {
		risk += 25
	}
	if o.DustPresent {
		risk += 20
	}
	if o.NearPopulation {
		risk += 15
	}
	return min(risk, maxRisk)
}

func waterRisk(o Observation) int {
	risk := 0
	if o.SewageVisible {
		risk += 40
	}
	if o.StandingWater {
		risk += 30
	}
	if o.NearPopulation {
		risk += 20
	}
	// Debris dust settling into standing water adds on top of both base points.
	if o.DustPresent && o.StandingWater {
		risk += 10
	}
	return min(risk, maxRisk)
}

func overallRisk(asbestos, water int) int {
	return int(math.Round(float64(asbestos)*asbestosWeight + float64(water)*waterWeight))
}

// priorityFor maps overall risk to a tier: >=70 CRITICAL, >=50 HIGH, >=30 MEDIUM, else LOW.
func priorityFor(overall int) Priority {
	switch {
	case overall >= 70:
		return PriorityCritical
	case overall >= 50:
		return PriorityHigh
	case overall >= 30:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func materialType(o Observation) string {
	switch {
	case o.BuildingAge == BuildingOld && o.OldMaterials:
		return "Asbestos-containing materials likely"
	case o.BuildingAge == BuildingOld:
		return "Old cement/concrete"
	case o.BuildingAge == BuildingModern:
		return "Modern concrete"
	default:
		return "Mixed/Unknown materials"
	}
}

// Recommendation sentences, appended in this order when their condition holds.
const (
	recUrgent     = "URGENT: Immediate intervention required."
	recHigh       = "HIGH PRIORITY: Schedule intervention within 48 hours."
	recAsbestos   = "Asbestos testing recommended before any cleanup. Use PPE and wet methods to suppress dust."
	recWater      = "Water quality testing required."
	recSewage     = "Sewage remediation needed."
	recPopulation = "Evacuate or restrict access to affected population."
	recMonitor    = "Monitor site. Schedule routine assessment."
)

// Recommendation assembles the fixed action sentences that apply to a scored
// observation. When none apply it returns the routine-monitoring sentence.
func Recommendation(o Observation, s ScoredFields) string {
	var parts []string

	switch s.Priority {
	case PriorityCritical:
		parts = append(parts, recUrgent)
	case PriorityHigh:
		parts = append(parts, recHigh)
	}
	if s.AsbestosRisk >= 50 {
		parts = append(parts, recAsbestos)
	}
	if s.WaterRisk >= 50 {
		parts = append(parts, recWater)
		if o.SewageVisible {
			parts = append(parts, recSewage)
		}
	}
	if o.NearPopulation {
		parts = append(parts, recPopulation)
	}

	if len(parts) == 0 {
		return recMonitor
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
