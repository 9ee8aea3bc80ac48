package pricing

import (
	"encoding/json"
	"sort"

	pkgerrors "github.com/entregave/dispatch-backend/pkg/errors"
)

// ConfigKey is the app_configs key holding the pricing document.
const ConfigKey = "pricing_tiers"

// Tier is one pricing band. A tier is either fixed (MaxKm + FixedPrice) or
// metered (BasePrice + PerKmPrice over MinKm).
type Tier struct {
	Name       string   `json:"name"`
	MinKm      *float64 `json:"min_km,omitempty"`
	MaxKm      *float64 `json:"max_km,omitempty"`
	FixedPrice *float64 `json:"fixed_price,omitempty"`
	BasePrice  *float64 `json:"base_price,omitempty"`
	PerKmPrice *float64 `json:"per_km_price,omitempty"`
}

// VehicleConfig is the rate table for one vehicle class.
type VehicleConfig struct {
	Currency string `json:"currency,omitempty"`
	Tiers    []Tier `json:"tiers"`
}

// Config maps vehicle type to its rate table. It is loaded fresh from the
// config store at every pricing decision, never cached.
type Config map[string]VehicleConfig

// ParseConfig decodes the stored pricing document.
func ParseConfig(raw json.RawMessage) (Config, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pricing configuration not found")
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode pricing configuration")
	}
	return cfg, nil
}

// sortedTiers orders tiers ascending by MinKm; tiers without MinKm sort last.
func sortedTiers(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	sort.SliceStable(out, func(i, j int) bool {
		switch {
		case out[i].MinKm == nil:
			return false
		case out[j].MinKm == nil:
			return true
		default:
			return *out[i].MinKm < *out[j].MinKm
		}
	})
	return out
}
