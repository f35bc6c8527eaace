package domain

import "time"

// SiteType classifies what kind of hazard a site presents.
type SiteType string

const (
	SiteDebris SiteType = "DEBRIS"
	SiteWater  SiteType = "WATER"
	SiteBoth   SiteType = "BOTH"
)

// Valid reports whether s is one of the known site types.
func (s SiteType) Valid() bool {
	switch s {
	case SiteDebris, SiteWater, SiteBoth:
		return true
	default:
		return false
	}
}

// BuildingAge is the observed age class of structures on site. Empty means not recorded.
type BuildingAge string

const (
	BuildingOld     BuildingAge = "OLD"
	BuildingModern  BuildingAge = "MODERN"
	BuildingUnknown BuildingAge = "UNKNOWN"
)

// Valid reports whether b is empty or one of the known building ages.
func (b BuildingAge) Valid() bool {
	switch b {
	case "", BuildingOld, BuildingModern, BuildingUnknown:
		return true
	default:
		return false
	}
}

// Priority is the intervention tier derived from overall risk.
type Priority string

const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// Priorities lists tiers from most to least severe.
var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is one of the known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Observation holds the field indicators that feed risk scoring.
type Observation struct {
	BuildingAge    BuildingAge `json:"buildingAge,omitempty"`
	DustPresent    bool        `json:"dustPresent"`
	OldMaterials   bool        `json:"oldMaterials"`
	NearPopulation bool        `json:"nearPopulation"`
	SewageVisible  bool        `json:"sewageVisible"`
	StandingWater  bool        `json:"standingWater"`
}

// ScoredFields are the values derived from an Observation by Score.
type ScoredFields struct {
	MaterialType string   `json:"materialType"`
	AsbestosRisk int      `json:"asbestosRisk"`
	WaterRisk    int      `json:"waterRisk"`
	OverallRisk  int      `json:"overallRisk"`
	Priority     Priority `json:"priority"`
}

// Assessment is the environmental observation of one physical site.
type Assessment struct {
	ID        string   `json:"id"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	ImagePath string   `json:"imagePath,omitempty"`
	SiteType  SiteType `json:"siteType"`

	Observation
	ScoredFields

	Notes     string    `json:"notes,omitempty"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AreaID returns the grid cell the assessment falls in.
func (a Assessment) AreaID() string {
	return AreaIDFor(a.Latitude, a.Longitude)
}

// Recommendation returns the action text for the assessment's current scores.
func (a Assessment) Recommendation() string {
	return Recommendation(a.Observation, a.ScoredFields)
}

// AssessmentRequest carries the caller-supplied fields of a create or update.
// Nil fields are absent: on create they take defaults, on update they keep
// the stored value.
type AssessmentRequest struct {
	Latitude       *float64     `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude      *float64     `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	ImagePath      *string      `json:"imagePath,omitempty" yaml:"imagePath,omitempty"`
	SiteType       *SiteType    `json:"siteType,omitempty" yaml:"siteType,omitempty"`
	BuildingAge    *BuildingAge `json:"buildingAge,omitempty" yaml:"buildingAge,omitempty"`
	DustPresent    *bool        `json:"dustPresent,omitempty" yaml:"dustPresent,omitempty"`
	OldMaterials   *bool        `json:"oldMaterials,omitempty" yaml:"oldMaterials,omitempty"`
	NearPopulation *bool        `json:"nearPopulation,omitempty" yaml:"nearPopulation,omitempty"`
	SewageVisible  *bool        `json:"sewageVisible,omitempty" yaml:"sewageVisible,omitempty"`
	StandingWater  *bool        `json:"standingWater,omitempty" yaml:"standingWater,omitempty"`
	Notes          *string      `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedBy      *string      `json:"createdBy,omitempty" yaml:"createdBy,omitempty"`
}

// NewAssessment validates a create request and returns a scored, unsaved
// assessment. The ID is left empty for the store to assign.
func NewAssessment(req AssessmentRequest) (Assessment, error) {
	if req.Latitude == nil {
		return Assessment{}, ValidationError("latitude", "is required")
	}
	if req.Longitude == nil {
		return Assessment{}, ValidationError("longitude", "is required")
	}
	if req.SiteType == nil {
		return Assessment{}, ValidationError("siteType", "is required")
	}
	if err := validateEnums(req); err != nil {
		return Assessment{}, err
	}

	now := Now()
	a := Assessment{
		CreatedAt: now,
		UpdatedAt: now,
	}
	a = applyRequest(a, req)
	return Rescore(a), nil
}

// ApplyUpdate derives a new scored assessment from a stored one and a partial
// update. The input is not modified; CreatedAt and ID are preserved.
func ApplyUpdate(current Assessment, req AssessmentRequest) (Assessment, error) {
	if err := validateEnums(req); err != nil {
		return Assessment{}, err
	}
	next := applyRequest(current, req)
	next.UpdatedAt = Now()
	return Rescore(next), nil
}

// Rescore recomputes every derived field of a from its indicators.
func Rescore(a Assessment) Assessment {
	a.ScoredFields = Score(a.Observation)
	return a
}

func validateEnums(req AssessmentRequest) error {
	if req.SiteType != nil && !req.SiteType.Valid() {
		return ValidationError("siteType", "must be one of DEBRIS, WATER, BOTH")
	}
	if req.BuildingAge != nil && !req.BuildingAge.Valid() {
		return ValidationError("buildingAge", "must be one of OLD, MODERN, UNKNOWN")
	}
	return nil
}

func applyRequest(a Assessment, req AssessmentRequest) Assessment {
	if req.Latitude != nil {
		a.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		a.Longitude = *req.Longitude
	}
	if req.ImagePath != nil {
		a.ImagePath = *req.ImagePath
	}
	if req.SiteType != nil {
		a.SiteType = *req.SiteType
	}
	if req.BuildingAge != nil {
		a.BuildingAge = *req.BuildingAge
	}
	if req.DustPresent != nil {
		a.DustPresent = *req.DustPresent
	}
	if req.OldMaterials != nil {
		a.OldMaterials = *req.OldMaterials
	}
	if req.NearPopulation != nil {
		a.NearPopulation = *req.NearPopulation
	}
	if req.SewageVisible != nil {
		a.SewageVisible = *req.SewageVisible
	}
	if req.StandingWater != nil {
		a.StandingWater = *req.StandingWater
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}
	if req.CreatedBy != nil {
		a.CreatedBy = *req.CreatedBy
	}
	return a
}
