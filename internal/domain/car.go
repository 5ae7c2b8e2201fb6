package domain

import (
	"fmt"
	"time"
)

// MaxFieldLen is the maximum length of the descriptive car fields,
// matching the column width in the cars table.
const MaxFieldLen = 100

// Car represents a single vehicle in the inventory.
type Car struct {
	ID        int64     `json:"id"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Year      string    `json:"year"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCar creates a new car with initialized timestamps. The ID is
// assigned by the repository on insert.
func NewCar(carMake, model, year string) *Car {
	now := time.Now()
	return &Car{
		Make:      carMake,
		Model:     model,
		Year:      year,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks that all required fields are present and within
// the column width limit.
func (c *Car) Validate() error {
	if c.Make == "" {
		return fmt.Errorf("car make required")
	}
	if c.Model == "" {
		return fmt.Errorf("car model required")
	}
	if c.Year == "" {
		return fmt.Errorf("car year required")
	}
	for name, value := range map[string]string{
		"make":  c.Make,
		"model": c.Model,
		"year":  c.Year,
	} {
		if len(value) > MaxFieldLen {
			return fmt.Errorf("car %s exceeds %d characters", name, MaxFieldLen)
		}
	}
	return nil
}

// ApplyUpdates sets fields from a partial-update map keyed by JSON field
// name. Unknown keys are ignored; non-string values are rejected.
func (c *Car) ApplyUpdates(updates map[string]any) error {
	for key, raw := range updates {
		switch key {
		case "make", "model", "year":
			value, ok := raw.(string)
			if !ok {
				return fmt.Errorf("field %s must be a string", key)
			}
			switch key {
			case "make":
				c.Make = value
			case "model":
				c.Model = value
			case "year":
				c.Year = value
			}
		}
	}
	return nil
}
