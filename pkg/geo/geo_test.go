package geo

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	// Caracas to Valencia (Venezuela), roughly 122 km.
	caracas := Point{Lat: 10.4806, Lng: -66.9036}
	valencia := Point{Lat: 10.1620, Lng: -68.0077}

	got := HaversineKm(caracas, valencia)
	if got < 115 || got > 130 {
		t.Fatalf("unexpected distance %f km", got)
	}

	if d := HaversineKm(caracas, caracas); d != 0 {
		t.Fatalf("distance to self should be 0, got %f", d)
	}
}

func TestHaversineKmSymmetry(t *testing.T) {
	a := Point{Lat: 10.5, Lng: -66.9}
	b := Point{Lat: 10.2, Lng: -67.5}
	if diff := math.Abs(HaversineKm(a, b) - HaversineKm(b, a)); diff > 1e-9 {
		t.Fatalf("haversine not symmetric, diff %g", diff)
	}
}

func TestPointInPolygon(t *testing.T) {
	// Unit square, vertices as [lng, lat].
	square := [][]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	tests := []struct {
		name  string
		point Point
		want  bool
	}{
		{name: "centroid", point: Point{Lat: 0.5, Lng: 0.5}, want: true},
		{name: "clearly outside", point: Point{Lat: 2, Lng: 2}, want: false},
		{name: "outside left", point: Point{Lat: 0.5, Lng: -0.5}, want: false},
		{name: "top edge counts", point: Point{Lat: 1, Lng: 0.5}, want: true},
		{name: "bottom edge excluded", point: Point{Lat: 0, Lng: 0.5}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PointInPolygon(tt.point, square); got != tt.want {
				t.Fatalf("PointInPolygon(%+v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}
}

func TestPointInPolygonConcave(t *testing.T) {
	// A "U" shape: the notch between the prongs is outside.
	ring := [][]float64{{0, 0}, {4, 0}, {4, 3}, {3, 3}, {3, 1}, {1, 1}, {1, 3}, {0, 3}}

	if !PointInPolygon(Point{Lat: 0.5, Lng: 2}, ring) {
		t.Fatal("point in the base should be inside")
	}
	if PointInPolygon(Point{Lat: 2, Lng: 2}, ring) {
		t.Fatal("point in the notch should be outside")
	}
	if !PointInPolygon(Point{Lat: 2, Lng: 0.5}, ring) {
		t.Fatal("point in the left prong should be inside")
	}
}

func TestPointInPolygonDegenerateRing(t *testing.T) {
	if PointInPolygon(Point{Lat: 0, Lng: 0}, [][]float64{{0, 0}, {1, 1}}) {
		t.Fatal("two-vertex ring can contain nothing")
	}
}
