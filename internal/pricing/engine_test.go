package pricing

import (
	"context"
	"errors"
	"testing"

	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
	"github.com/entregave/dispatch-backend/pkg/geo"
	"github.com/entregave/dispatch-backend/pkg/logger"
	"github.com/entregave/dispatch-backend/pkg/routing"
	"github.com/shopspring/decimal"
)

type fakeRouter struct {
	route *routing.Route
	err   error
}

func (f *fakeRouter) Route(ctx context.Context, origin, destination geo.Point) (*routing.Route, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.route, nil
}

func newTestEngine(t *testing.T, router RouteResolver) *Engine {
	t.Helper()
	engine, err := NewEngine(EngineParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Router: router,
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func floatPtr(v float64) *float64 { return &v }

func motoConfig() Config {
	return Config{
		"moto": VehicleConfig{
			Currency: "USD",
			Tiers: []Tier{
				// Deliberately out of order; the engine must sort by MinKm.
				{Name: "Media", MinKm: floatPtr(3), MaxKm: floatPtr(7), FixedPrice: floatPtr(3.5)},
				{Name: "Corta", MinKm: floatPtr(0), MaxKm: floatPtr(3), FixedPrice: floatPtr(2)},
				{Name: "Larga", MinKm: floatPtr(7), BasePrice: floatPtr(3.5), PerKmPrice: floatPtr(0.45)},
			},
		},
	}
}

func TestQuoteSelectsFixedTier(t *testing.T) {
	engine := newTestEngine(t, &fakeRouter{route: &routing.Route{
		DistanceKm: 2.4, DistanceText: "2.4 km", DurationText: "9 min",
	}})

	quote, err := engine.Quote(context.Background(),
		geo.Point{Lat: 10.48, Lng: -66.90}, geo.Point{Lat: 10.49, Lng: -66.88},
		"moto", motoConfig())
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	if quote.Tier != "Corta" {
		t.Fatalf("expected tier Corta, got %q", quote.Tier)
	}
	if !quote.Cost.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("expected cost 2, got %s", quote.Cost)
	}
	if quote.Currency != "USD" {
		t.Fatalf("unexpected currency %q", quote.Currency)
	}
	if quote.DurationText != "9 min" {
		t.Fatalf("unexpected duration %q", quote.DurationText)
	}
}

func TestQuoteMeteredTierAddsPerKm(t *testing.T) {
	engine := newTestEngine(t, &fakeRouter{route: &routing.Route{
		DistanceKm: 12, DistanceText: "12.0 km", DurationText: "31 min",
	}})

	quote, err := engine.Quote(context.Background(),
		geo.Point{Lat: 10.48, Lng: -66.90}, geo.Point{Lat: 10.60, Lng: -66.70},
		"moto", motoConfig())
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	if quote.Tier != "Larga" {
		t.Fatalf("expected tier Larga, got %q", quote.Tier)
	}
	// 3.50 + (12 - 7) * 0.45 = 5.75
	if !quote.Cost.Equal(decimal.RequireFromString("5.75")) {
		t.Fatalf("expected cost 5.75, got %s", quote.Cost)
	}
}

func TestQuoteFallsBackToHaversineWhenRoutingFails(t *testing.T) {
	engine := newTestEngine(t, &fakeRouter{err: errors.New("osrm down")})

	origin := geo.Point{Lat: 10.4806, Lng: -66.9036}
	destination := geo.Point{Lat: 10.4900, Lng: -66.8800}
	quote, err := engine.Quote(context.Background(), origin, destination, "moto", motoConfig())
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	wantKm := geo.HaversineKm(origin, destination) * haversineCorrectionFactor
	if diff := quote.DistanceKm - wantKm; diff > 0.01 || diff < -0.01 {
		t.Fatalf("expected corrected haversine distance %.2f, got %.2f", wantKm, quote.DistanceKm)
	}
	if quote.DurationText != "N/A" {
		t.Fatalf("expected N/A duration, got %q", quote.DurationText)
	}
	if quote.Tier == "" {
		t.Fatal("expected a tier to match the fallback distance")
	}
}

func TestQuoteTierSelectionIdenticalAcrossDistanceSources(t *testing.T) {
	// A routed distance and a fallback distance that land in the same band
	// must produce the same tier and cost.
	cfg := motoConfig()
	routed := newTestEngine(t, &fakeRouter{route: &routing.Route{
		DistanceKm: 5, DistanceText: "5.0 km", DurationText: "15 min",
	}})
	fallback := newTestEngine(t, &fakeRouter{err: errors.New("down")})

	// Pick points whose corrected haversine distance is also within 3..7 km.
	origin := geo.Point{Lat: 10.4806, Lng: -66.9036}
	destination := geo.Point{Lat: 10.5100, Lng: -66.9300}

	a, err := routed.Quote(context.Background(), origin, destination, "moto", cfg)
	if err != nil {
		t.Fatalf("routed quote: %v", err)
	}
	b, err := fallback.Quote(context.Background(), origin, destination, "moto", cfg)
	if err != nil {
		t.Fatalf("fallback quote: %v", err)
	}

	if a.Tier != b.Tier {
		t.Fatalf("tier differs across distance sources: %q vs %q", a.Tier, b.Tier)
	}
	if !a.Cost.Equal(b.Cost) {
		t.Fatalf("cost differs across distance sources: %s vs %s", a.Cost, b.Cost)
	}
}

func TestQuoteUnknownVehicleType(t *testing.T) {
	engine := newTestEngine(t, &fakeRouter{route: &routing.Route{DistanceKm: 1}})

	_, err := engine.Quote(context.Background(),
		geo.Point{Lat: 1, Lng: 1}, geo.Point{Lat: 1.1, Lng: 1.1},
		"submarino", motoConfig())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuoteRejectsInvalidCoordinates(t *testing.T) {
	engine := newTestEngine(t, &fakeRouter{route: &routing.Route{DistanceKm: 1}})

	_, err := engine.Quote(context.Background(),
		geo.Point{Lat: 95, Lng: 0}, geo.Point{Lat: 1, Lng: 1},
		"moto", motoConfig())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestQuoteCostRoundedToTwoDecimals(t *testing.T) {
	engine := newTestEngine(t, &fakeRouter{route: &routing.Route{
		DistanceKm: 10.333, DistanceText: "10.3 km", DurationText: "26 min",
	}})

	quote, err := engine.Quote(context.Background(),
		geo.Point{Lat: 10.48, Lng: -66.90}, geo.Point{Lat: 10.60, Lng: -66.70},
		"moto", motoConfig())
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	// 3.50 + 3.333 * 0.45 = 4.99985 -> 5.00
	if !quote.Cost.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected rounded cost 5.00, got %s", quote.Cost)
	}
	if quote.Cost.Exponent() < -2 {
		t.Fatalf("cost has more than 2 decimals: %s", quote.Cost)
	}
}

func TestParseConfigMissingDocument(t *testing.T) {
	if _, err := ParseConfig(nil); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestSelectTierNoMatch(t *testing.T) {
	cost, name := selectTier(50, []Tier{
		{Name: "Corta", MinKm: floatPtr(0), MaxKm: floatPtr(3), FixedPrice: floatPtr(2)},
	})
	if name != "" {
		t.Fatalf("expected no tier, got %q", name)
	}
	if !cost.IsZero() {
		t.Fatalf("expected zero cost, got %s", cost)
	}
}
