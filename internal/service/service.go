package service

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"motorpool/internal/codec"
	"motorpool/internal/domain"
	"motorpool/internal/repository"
)

// CarService provides business logic for car inventory operations
type CarService struct {
	repo     repository.Repository
	eventBus *EventBus
}

// NewCarService creates a new car service
func NewCarService(repo repository.Repository, eventBus *EventBus) *CarService {
	return &CarService{
		repo:     repo,
		eventBus: eventBus,
	}
}

// GetCar retrieves a single car by ID
func (s *CarService) GetCar(ctx context.Context, id int64) (*domain.Car, error) {
	car, err := s.repo.GetCar(ctx, id)
	if err != nil {
		return nil, err
	}
	if car == nil {
		return nil, fmt.Errorf("car %d not found", id)
	}
	return car, nil
}

// ListCars returns all cars, optionally filtered by make and model
func (s *CarService) ListCars(ctx context.Context, carMake, model string) ([]domain.Car, error) {
	return s.repo.ListCars(ctx, carMake, model)
}

// CreateCar creates a new car
func (s *CarService) CreateCar(ctx context.Context, car *domain.Car) error {
	if err := car.Validate(); err != nil {
		return err
	}

	if err := s.repo.CreateCar(ctx, car); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventCarCreated,
		Payload: car,
	})

	return nil
}

// UpdateCar replaces all descriptive fields of an existing car
func (s *CarService) UpdateCar(ctx context.Context, id int64, car *domain.Car) error {
	car.ID = id

	if err := car.Validate(); err != nil {
		return err
	}

	if err := s.repo.UpdateCar(ctx, car); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventCarUpdated,
		Payload: map[string]int64{"id": id},
	})

	return nil
}

// PatchCar applies a partial update to an existing car: the stored row
// is loaded, the update map is applied to it, and the result is
// validated and written back. Unknown keys are ignored.
func (s *CarService) PatchCar(ctx context.Context, id int64, updates map[string]any) error {
	car, err := s.repo.GetCar(ctx, id)
	if err != nil {
		return err
	}
	if car == nil {
		return fmt.Errorf("car %d not found", id)
	}

	if err := car.ApplyUpdates(updates); err != nil {
		return err
	}
	if err := car.Validate(); err != nil {
		return err
	}

	if err := s.repo.UpdateCar(ctx, car); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventCarUpdated,
		Payload: map[string]int64{"id": id},
	})

	return nil
}

// DeleteCar removes a car
func (s *CarService) DeleteCar(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCar(ctx, id); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventCarDeleted,
		Payload: map[string]int64{"id": id},
	})

	return nil
}

// Ping verifies the backing store is reachable
func (s *CarService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// CountCars returns the size of the inventory
func (s *CarService) CountCars(ctx context.Context) (int, error) {
	return s.repo.CountCars(ctx)
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	CarsCreated int    `json:"cars_created"`
	CarsUpdated int    `json:"cars_updated"`
	Strategy    string `json:"strategy"`
}

// ImportYAML imports fleet data from YAML
func (s *CarService) ImportYAML(ctx context.Context, data []byte, strategy string) (*ImportResult, error) {
	codec := codec.NewYAMLCodec()
	fleet, err := codec.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return s.importFleet(ctx, fleet, strategy)
}

// importFleet imports a fleet with the specified strategy
func (s *CarService) importFleet(ctx context.Context, fleet *domain.Fleet, strategy string) (*ImportResult, error) {
	if strategy == "" {
		strategy = "merge"
	}

	if strategy != "merge" && strategy != "replace" {
		return nil, fmt.Errorf("invalid strategy %s, must be 'merge' or 'replace'", strategy)
	}

	for i := range fleet.Cars {
		if err := fleet.Cars[i].Validate(); err != nil {
			return nil, fmt.Errorf("car %d: %w", i, err)
		}
	}

	counts, err := s.repo.ImportFleet(ctx, fleet, strategy)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		CarsCreated: counts["cars_created"],
		CarsUpdated: counts["cars_updated"],
		Strategy:    strategy,
	}

	s.eventBus.Publish(Event{
		Type:    EventFleetImported,
		Payload: result,
	})

	return result, nil
}

// ExportJSON exports the fleet as JSON
func (s *CarService) ExportJSON(ctx context.Context) ([]byte, error) {
	fleet, err := s.repo.ExportFleet(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	codec := codec.NewJSONCodec()
	if err := codec.Export(fleet, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ExportYAML exports the fleet as YAML
func (s *CarService) ExportYAML(ctx context.Context, w io.Writer) error {
	fleet, err := s.repo.ExportFleet(ctx)
	if err != nil {
		return err
	}

	codec := codec.NewYAMLCodec()
	return codec.Export(fleet, w)
}
