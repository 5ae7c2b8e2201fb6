package domain

// Fleet is a bulk import/export container for cars.
type Fleet struct {
	Cars []Car `json:"cars" yaml:"cars"`
}

// NewFleet creates an empty fleet.
func NewFleet() *Fleet {
	return &Fleet{Cars: make([]Car, 0)}
}

// Add appends a car to the fleet.
func (f *Fleet) Add(car Car) {
	f.Cars = append(f.Cars, car)
}
