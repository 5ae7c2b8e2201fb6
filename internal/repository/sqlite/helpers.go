package sqlite

import (
	"time"

	"motorpool/internal/domain"
)

// ============================================================================
// Car Row Scanner
// ============================================================================

// carRow holds all columns from a car query for scanning
type carRow struct {
	ID        int64
	Make      string
	Model     string
	Year      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match carColumns order exactly:
// id, make, model, year, created_at, updated_at
func (r *carRow) scanArgs() []any {
	return []any{
		&r.ID,        // 1
		&r.Make,      // 2
		&r.Model,     // 3
		&r.Year,      // 4
		&r.CreatedAt, // 5
		&r.UpdatedAt, // 6
	}
}

// toDomain converts the scanned row to a domain.Car
func (r *carRow) toDomain() *domain.Car {
	return &domain.Car{
		ID:        r.ID,
		Make:      r.Make,
		Model:     r.Model,
		Year:      r.Year,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// carColumns is the SELECT column list for car queries
const carColumns = `id, make, model, year, created_at, updated_at`
