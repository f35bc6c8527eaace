// Package domain models environmental site assessments and community health
// signals, and holds the pure scoring and correlation rules built on them.
//
// # Site Assessments
//
// A field team records one Assessment per physical site: coordinates, a site
// type (DEBRIS, WATER, BOTH), an optional building age and five boolean
// indicators:
//
//	dustPresent, oldMaterials, nearPopulation, sewageVisible, standingWater
//
// Missing indicators are false. Missing building age contributes nothing.
//
// # Risk Scoring
//
// [Score] converts indicators into integer risks, each clamped to 0–100:
//
//	Asbestos: OLD +30 | UNKNOWN +15 | oldMaterials +25 | dust +20 | nearPopulation +15
//	Water:    sewage +40 | standingWater +30 | nearPopulation +20 | dust+standing +10
//	Overall:  round(asbestos*0.6 + water*0.4)
//
// Priority is a step function of overall risk:
//
//	>=70 CRITICAL | >=50 HIGH | >=30 MEDIUM | else LOW
//
// Derived fields are always recomputed together. [NewAssessment] and
// [ApplyUpdate] both return a freshly scored copy; nothing mutates a stored
// record in place.
//
// # Health Signals
//
// A HealthSignal is a reporter's assertion that a symptom class (RESPIRATORY,
// GASTROINTESTINAL, SKIN) is NORMAL or ELEVATED in a named area. The baseline
// is not modelled. Display names and icons live in static lookup tables
// ([SignalTypeInfoFor], [SignalLevelInfoFor], [SignalSourceInfoFor]).
//
// # Spatial Grid
//
// Assessments carry no area tag. [AreaIDFor] truncates lat/0.01 and lon/0.01
// toward zero and formats "AREA_{lat}_{lon}". A cell is about 1.1 km tall and
// narrower east–west away from the equator. Truncation makes the cells that
// touch zero latitude or longitude twice as wide as the others, and two points
// a centimetre apart can land in different cells. This is bucketing, not
// geodesic clustering.
//
// Health signals are grouped by their caller-supplied areaId. The two keys
// only meet when reporters use grid ids. [CorrelationOptions.UnifyGrid]
// regroups signals by the grid id of their own coordinates instead.
//
// # Correlation
//
// [Analyze] joins both groupings on area id and scores each area:
//
//	score = min(50, floor(avgRisk*0.5)) + 10*elevated
//	        +20 respiratory & avg>70 | +15 GI & avg>60 | +10 skin & avg>50
//	        clamped to 100
//
// Risk level is then the first match of URGENT, HIGH, MEDIUM, LOW, NORMAL
// (see [riskLevelFor]). Areas are ranked by score with a stable sort.
package domain
