// Package pricing computes delivery costs from distance and per-vehicle
// tier tables.
package pricing

import (
	"context"
	"fmt"
	"math"

	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/geo"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"github.com/entregave/dispatch-backend/pkg/routing"
	"github.com/shopspring/decimal"
)

// Straight-line distances are inflated to approximate street routing when the
// routing service is unavailable.
const haversineCorrectionFactor = 1.4

const defaultCurrency = "USD"

// RouteResolver resolves the road leg between two points.
type RouteResolver interface {
	Route(ctx context.Context, origin, destination geo.Point) (*routing.Route, error)
}

// Quote is a priced delivery leg.
type Quote struct {
	Cost         decimal.Decimal
	Currency     string
	DistanceKm   float64
	DistanceText string
	DurationText string
	Tier         string
}

// EngineParams wire the pricing engine.
type EngineParams struct {
	Logger *logger.Logger
	Router RouteResolver
}

// Engine prices delivery legs. It holds no pricing state of its own: the
// tier document is passed in per call.
type Engine struct {
	logg   *logger.Logger
	router RouteResolver
}

// NewEngine validates dependencies and builds the engine.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Router == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "route resolver required")
	}
	return &Engine{logg: params.Logger, router: params.Router}, nil
}

// Quote prices the leg from origin to destination for the given vehicle
// class. Routing failures degrade to a corrected straight-line estimate.
func (e *Engine) Quote(ctx context.Context, origin, destination geo.Point, vehicleType string, cfg Config) (*Quote, error) {
	if err := validatePoint(origin); err != nil {
		return nil, err
	}
	if err := validatePoint(destination); err != nil {
		return nil, err
	}

	vehicleCfg, ok := cfg[vehicleType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("vehicle type %q is not configured", vehicleType))
	}

	distanceKm, distanceText, durationText := e.resolveDistance(ctx, origin, destination)

	quote := &Quote{
		Currency:     vehicleCfg.Currency,
		DistanceKm:   math.Round(distanceKm*100) / 100,
		DistanceText: distanceText,
		DurationText: durationText,
	}
	if quote.Currency == "" {
		quote.Currency = defaultCurrency
	}

	quote.Cost, quote.Tier = selectTier(distanceKm, vehicleCfg.Tiers)
	if quote.Tier == "" {
		logCtx := e.logg.WithField(ctx, "vehicle_type", vehicleType)
		e.logg.Warn(logCtx, "no pricing tier matched distance")
	}
	return quote, nil
}

func (e *Engine) resolveDistance(ctx context.Context, origin, destination geo.Point) (float64, string, string) {
	route, err := e.router.Route(ctx, origin, destination)
	if err == nil {
		return route.DistanceKm, route.DistanceText, route.DurationText
	}

	e.logg.Warn(e.logg.WithField(ctx, "fallback", "haversine"), "routing service unavailable")
	km := geo.HaversineKm(origin, destination) * haversineCorrectionFactor
	return km, fmt.Sprintf("~%.1f km (est.)", km), "N/A"
}

// selectTier walks tiers ordered by MinKm and returns the first match: fixed
// tiers match when the distance fits under MaxKm, metered tiers always match
// once reached. No match yields a zero cost and an empty tier name.
func selectTier(distanceKm float64, tiers []Tier) (decimal.Decimal, string) {
	for _, tier := range sortedTiers(tiers) {
		switch {
		case tier.MaxKm != nil:
			if distanceKm <= *tier.MaxKm {
				price := 0.0
				if tier.FixedPrice != nil {
					price = *tier.FixedPrice
				}
				return decimal.NewFromFloat(price).Round(2), tier.Name
			}
		case tier.BasePrice != nil:
			minKm := 0.0
			if tier.MinKm != nil {
				minKm = *tier.MinKm
			}
			perKm := 0.0
			if tier.PerKmPrice != nil {
				perKm = *tier.PerKmPrice
			}
			extra := decimal.NewFromFloat(distanceKm - minKm).Mul(decimal.NewFromFloat(perKm))
			return decimal.NewFromFloat(*tier.BasePrice).Add(extra).Round(2), tier.Name
		}
	}
	return decimal.Zero, ""
}

func validatePoint(p geo.Point) error {
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}
	return nil
}
