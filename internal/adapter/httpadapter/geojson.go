package httpadapter

import "github.com/couchcryptid/healthmap-risk-service/internal/domain"

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string            `json:"type"`
	Geometry   pointGeometry     `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

type pointGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"` // [lon, lat]
}

type featureProperties struct {
	ID           string          `json:"id"`
	SiteType     domain.SiteType `json:"siteType"`
	OverallRisk  int             `json:"overallRisk"`
	AsbestosRisk int             `json:"asbestosRisk"`
	WaterRisk    int             `json:"waterRisk"`
	Priority     domain.Priority `json:"priority"`
	MaterialType string          `json:"materialType"`
	ImagePath    string          `json:"imagePath,omitempty"`
}

func newFeatureCollection(list []domain.Assessment) featureCollection {
	fc := featureCollection{Type: "FeatureCollection", Features: make([]feature, 0, len(list))}
	for _, a := range list {
		fc.Features = append(fc.Features, feature{
			Type: "Feature",
			Geometry: pointGeometry{
				Type:        "Point",
				Coordinates: [2]float64{a.Longitude, a.Latitude},
			},
			Properties: featureProperties{
				ID:           a.ID,
				SiteType:     a.SiteType,
				OverallRisk:  a.OverallRisk,
				AsbestosRisk: a.AsbestosRisk,
				WaterRisk:    a.WaterRisk,
				Priority:     a.Priority,
				MaterialType: a.MaterialType,
				ImagePath:    a.ImagePath,
			},
		})
	}
	return fc
}
