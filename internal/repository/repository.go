package repository

import (
	"context"

	"motorpool/internal/domain"
)

// Repository defines the interface for car inventory data access
type Repository interface {
	// Read operations
	GetCar(ctx context.Context, id int64) (*domain.Car, error)
	ListCars(ctx context.Context, carMake, model string) ([]domain.Car, error)
	CountCars(ctx context.Context) (int, error)

	// Write operations
	CreateCar(ctx context.Context, car *domain.Car) error
	UpdateCar(ctx context.Context, car *domain.Car) error
	DeleteCar(ctx context.Context, id int64) error

	// Bulk operations
	ImportFleet(ctx context.Context, fleet *domain.Fleet, strategy string) (map[string]int, error)
	ExportFleet(ctx context.Context) (*domain.Fleet, error)

	// Ping verifies the backing store is reachable
	Ping(ctx context.Context) error

	// Close releases resources
	Close() error
}
