// Package zones evaluates delivery restrictions against polygonal areas with
// optional daily time windows.
package zones

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/entregave/dispatch-backend/pkg/db/models"
	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/geo"
)

// Match reports which zone restricts a point, if any.
type Match struct {
	ZoneID   int64
	ZoneName string
}

// Evaluate checks the point against every active zone. A zone restricts the
// point when the point lies inside its polygon AND the zone's window applies:
// both bounds nil means restricted around the clock, a window with From after
// To wraps midnight, and a half-configured window never restricts.
func Evaluate(point geo.Point, zones []models.RestrictedZone, now time.Time) (*Match, error) {
	clock := now.Format("15:04:05")

	for _, zone := range zones {
		if !zone.Active {
			continue
		}
		ring, err := decodePolygon(zone.Polygon)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
				fmt.Sprintf("zone %d has an invalid polygon", zone.ID))
		}
		if !geo.PointInPolygon(point, ring) {
			continue
		}
		if windowApplies(zone.RestrictedFrom, zone.RestrictedTo, clock) {
			return &Match{ZoneID: zone.ID, ZoneName: zone.Name}, nil
		}
	}
	return nil, nil
}

func windowApplies(from, to *string, clock string) bool {
	if from == nil && to == nil {
		return true
	}
	if from == nil || to == nil {
		return false
	}
	start, end := normalizeClock(*from), normalizeClock(*to)
	if start > end {
		// wraps midnight, e.g. 22:00 to 06:00
		return clock >= start || clock <= end
	}
	return start <= clock && clock <= end
}

// normalizeClock pads HH:MM to HH:MM:SS so lexicographic comparison works.
func normalizeClock(v string) string {
	if len(v) == 5 {
		return v + ":00"
	}
	return v
}

func decodePolygon(raw json.RawMessage) ([][]float64, error) {
	var ring [][]float64
	if err := json.Unmarshal(raw, &ring); err != nil {
		return nil, err
	}
	if len(ring) < 3 {
		return nil, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(ring))
	}
	for i, vertex := range ring {
		if len(vertex) != 2 {
			return nil, fmt.Errorf("vertex %d must be a [lng, lat] pair", i)
		}
	}
	return ring, nil
}
