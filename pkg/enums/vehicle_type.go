package enums

import "fmt"

// VehicleType names the rate class an order is priced under. Besides
// physical vehicles the fleet uses synthetic classes for billing programs.
type VehicleType string

const (
	VehicleTypeMoto    VehicleType = "moto"
	VehicleTypeCarro   VehicleType = "carro"
	VehicleTypeVan     VehicleType = "van"
	VehicleTypeCredito VehicleType = "credito"
	VehicleTypeTE1     VehicleType = "te1"
	VehicleTypeTE2     VehicleType = "te2"
	VehicleTypeTP      VehicleType = "tp"
	VehicleTypeContado VehicleType = "de_contado"
	VehicleTypeTPF     VehicleType = "tpf"
)

var validVehicleTypes = []VehicleType{
	VehicleTypeMoto,
	VehicleTypeCarro,
	VehicleTypeVan,
	VehicleTypeCredito,
	VehicleTypeTE1,
	VehicleTypeTE2,
	VehicleTypeTP,
	VehicleTypeContado,
	VehicleTypeTPF,
}

// String implements fmt.Stringer.
func (v VehicleType) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VehicleType.
func (v VehicleType) IsValid() bool {
	for _, candidate := range validVehicleTypes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVehicleType converts raw input into a VehicleType.
func ParseVehicleType(value string) (VehicleType, error) {
	for _, candidate := range validVehicleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vehicle type %q", value)
}
