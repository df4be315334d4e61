// Package geo provides spatial helpers for gridded forecast data.
package geo

import (
	"errors"
	"math"
)

// ErrInvalidGrid is returned when the grid passed to Interpolate is empty.
// Passing such a grid is a caller bug, not an expected runtime condition.
var ErrInvalidGrid = errors.New("geo: grid must be non-empty")

// Interpolate performs bilinear interpolation on a 2D grid of scalar values.
//
// The grid is indexed grid[latIdx][lonIdx] with row 0 at latMax (latitude
// decreases as the row index grows, matching the NOAA OVATION layout).
// Coordinates on or beyond the grid edge clamp to the nearest cell.
func Interpolate(grid [][]float64, lat, lon, latMin, latMax, lonMin, lonMax float64) (float64, error) {
	rows := len(grid)
	if rows == 0 || len(grid[0]) == 0 {
		return 0, ErrInvalidGrid
	}
	cols := len(grid[0])

	latPos := (latMax - lat) / (latMax - latMin) * float64(rows-1)
	lonPos := (lon - lonMin) / (lonMax - lonMin) * float64(cols-1)

	latIdx0 := int(math.Floor(latPos))
	lonIdx0 := int(math.Floor(lonPos))

	latIdx0 = clampIndex(latIdx0, rows-1)
	lonIdx0 = clampIndex(lonIdx0, cols-1)
	latIdx1 := clampIndex(latIdx0+1, rows-1)
	lonIdx1 := clampIndex(lonIdx0+1, cols-1)

	latFrac := latPos - float64(latIdx0)
	lonFrac := lonPos - float64(lonIdx0)

	v00 := grid[latIdx0][lonIdx0]
	v01 := grid[latIdx0][lonIdx1]
	v10 := grid[latIdx1][lonIdx0]
	v11 := grid[latIdx1][lonIdx1]

	// Blend along longitude at both latitude rows, then along latitude.
	v0 := v00*(1-lonFrac) + v01*lonFrac
	v1 := v10*(1-lonFrac) + v11*lonFrac
	return v0*(1-latFrac) + v1*latFrac, nil
}

func clampIndex(i, max int) int {
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}
