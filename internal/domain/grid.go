package domain

import "fmt"

// gridStep is the cell size in decimal degrees (about 1.1 km of latitude).
const gridStep = 0.01

// AreaIDFor quantizes a coordinate into a coarse grid cell id of the form
// "AREA_{latGrid}_{lonGrid}". Grid indices truncate toward zero, so the cells
// touching the equator and the prime meridian span both signs.
func AreaIDFor(lat, lon float64) string {
	latGrid := int(lat / gridStep)
	lonGrid := int(lon / gridStep)
	return fmt.Sprintf("AREA_%d_%d", latGrid, lonGrid)
}
