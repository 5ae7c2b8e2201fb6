package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"motorpool/internal/domain"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each new pool connection to :memory: would open its own empty
	// database, so pin the pool to a single connection
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		make TEXT NOT NULL,
		model TEXT NOT NULL,
		year TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cars_make ON cars(make);
	CREATE INDEX IF NOT EXISTS idx_cars_model ON cars(model);
	`

	_, err := r.db.Exec(schema)
	return err
}

// GetCar retrieves a single car by ID. Returns (nil, nil) when absent.
func (r *Repository) GetCar(ctx context.Context, id int64) (*domain.Car, error) {
	var row carRow
	err := r.db.QueryRowContext(ctx, `
		SELECT `+carColumns+` FROM cars WHERE id = ?
	`, id).Scan(row.scanArgs()...)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query car: %w", err)
	}

	return row.toDomain(), nil
}

// ListCars returns all cars, optionally filtered by make and model
func (r *Repository) ListCars(ctx context.Context, carMake, model string) ([]domain.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars`

	var conds []string
	var args []any
	if carMake != "" {
		conds = append(conds, "make = ?")
		args = append(args, carMake)
	}
	if model != "" {
		conds = append(conds, "model = ?")
		args = append(args, model)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cars: %w", err)
	}
	defer rows.Close()

	cars := make([]domain.Car, 0)
	for rows.Next() {
		var row carRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan car: %w", err)
		}
		cars = append(cars, *row.toDomain())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cars: %w", err)
	}

	return cars, nil
}

// CountCars returns the number of cars in the inventory
func (r *Repository) CountCars(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cars: %w", err)
	}
	return count, nil
}

// CreateCar inserts a new car and assigns its ID
func (r *Repository) CreateCar(ctx context.Context, car *domain.Car) error {
	now := time.Now()
	if car.CreatedAt.IsZero() {
		car.CreatedAt = now
	}
	car.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO cars (make, model, year, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, car.Make, car.Model, car.Year, car.CreatedAt, car.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert car: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted car id: %w", err)
	}
	car.ID = id

	return nil
}

// UpdateCar replaces all descriptive fields of an existing car
func (r *Repository) UpdateCar(ctx context.Context, car *domain.Car) error {
	car.UpdatedAt = time.Now()

	res, err := r.db.ExecContext(ctx, `
		UPDATE cars SET make = ?, model = ?, year = ?, updated_at = ?
		WHERE id = ?
	`, car.Make, car.Model, car.Year, car.UpdatedAt, car.ID)
	if err != nil {
		return fmt.Errorf("failed to update car: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("car %d not found", car.ID)
	}

	return nil
}

// DeleteCar removes a car
func (r *Repository) DeleteCar(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cars WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete car: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("car %d not found", id)
	}

	return nil
}

// ImportFleet loads a fleet with the given strategy inside a transaction.
// "merge" upserts rows by id and inserts rows without ids; "replace"
// clears the table first.
func (r *Repository) ImportFleet(ctx context.Context, fleet *domain.Fleet, strategy string) (map[string]int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	counts := map[string]int{"cars_created": 0, "cars_updated": 0}

	if strategy == "replace" {
		if _, err := tx.ExecContext(ctx, `DELETE FROM cars`); err != nil {
			return nil, fmt.Errorf("failed to clear cars: %w", err)
		}
	}

	now := time.Now()
	for i := range fleet.Cars {
		car := &fleet.Cars[i]

		if strategy == "merge" && car.ID != 0 {
			var exists bool
			err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM cars WHERE id = ?)`, car.ID).Scan(&exists)
			if err != nil {
				return nil, fmt.Errorf("failed to check car %d: %w", car.ID, err)
			}
			if exists {
				if _, err := tx.ExecContext(ctx, `
					UPDATE cars SET make = ?, model = ?, year = ?, updated_at = ?
					WHERE id = ?
				`, car.Make, car.Model, car.Year, now, car.ID); err != nil {
					return nil, fmt.Errorf("failed to update car %d: %w", car.ID, err)
				}
				counts["cars_updated"]++
				continue
			}
		}

		if car.ID != 0 {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO cars (id, make, model, year, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, car.ID, car.Make, car.Model, car.Year, now, now); err != nil {
				return nil, fmt.Errorf("failed to insert car %d: %w", car.ID, err)
			}
		} else {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO cars (make, model, year, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?)
			`, car.Make, car.Model, car.Year, now, now)
			if err != nil {
				return nil, fmt.Errorf("failed to insert car: %w", err)
			}
			if id, err := res.LastInsertId(); err == nil {
				car.ID = id
			}
		}
		counts["cars_created"]++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return counts, nil
}

// ExportFleet returns the full inventory as a fleet
func (r *Repository) ExportFleet(ctx context.Context) (*domain.Fleet, error) {
	cars, err := r.ListCars(ctx, "", "")
	if err != nil {
		return nil, err
	}

	fleet := domain.NewFleet()
	fleet.Cars = cars
	return fleet, nil
}

// Ping verifies the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
