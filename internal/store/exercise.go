package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/hipcheck/internal/motion"
)

// DefaultExerciseName names the preset seeded on an empty database.
const DefaultExerciseName = "Hip back 10 cm"

// Exercise is a named tolerance preset.
type Exercise struct {
	ID             string
	Name           string
	TargetDistance float64
	RelativeError  float64
	LateralSlack   float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Tolerance returns the session bands for this preset.
func (e *Exercise) Tolerance() motion.Tolerance {
	return motion.Tolerance{
		TargetDistance: e.TargetDistance,
		RelativeError:  e.RelativeError,
		LateralSlack:   e.LateralSlack,
	}
}

// ExerciseRepository provides CRUD operations for exercises.
type ExerciseRepository struct {
	db *sql.DB
}

// Exercises returns the exercise repository for this store.
func (s *Store) Exercises() *ExerciseRepository {
	return &ExerciseRepository{db: s.db}
}

const exerciseColumns = `id, name, target_distance, relative_error, lateral_slack, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row rowScanner) (*Exercise, error) {
	e := &Exercise{}
	err := row.Scan(&e.ID, &e.Name, &e.TargetDistance, &e.RelativeError, &e.LateralSlack, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// Create inserts a new exercise. An empty ID is filled with a new UUID.
func (r *ExerciseRepository) Create(e *Exercise) error {
	if err := e.Tolerance().Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO exercises (`+exerciseColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.TargetDistance, e.RelativeError, e.LateralSlack, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exercise %q: %w", e.Name, err)
	}
	return nil
}

// GetByID retrieves an exercise by its ID.
func (r *ExerciseRepository) GetByID(id string) (*Exercise, error) {
	return scanExercise(r.db.QueryRow(`SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id))
}

// GetByName retrieves an exercise by its name.
func (r *ExerciseRepository) GetByName(name string) (*Exercise, error) {
	return scanExercise(r.db.QueryRow(`SELECT `+exerciseColumns+` FROM exercises WHERE name = ?`, name))
}

// List returns all exercises ordered by name.
func (r *ExerciseRepository) List() ([]*Exercise, error) {
	rows, err := r.db.Query(`SELECT ` + exerciseColumns + ` FROM exercises ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exercises []*Exercise
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return exercises, nil
}

// Update overwrites an existing exercise.
func (r *ExerciseRepository) Update(e *Exercise) error {
	if err := e.Tolerance().Validate(); err != nil {
		return err
	}
	e.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE exercises SET name = ?, target_distance = ?, relative_error = ?, lateral_slack = ?, updated_at = ?
		 WHERE id = ?`,
		e.Name, e.TargetDistance, e.RelativeError, e.LateralSlack, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update exercise %s: %w", e.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an exercise by its ID.
func (r *ExerciseRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM exercises WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SeedDefault creates the default preset when no exercise exists and returns
// the first exercise by name.
func (r *ExerciseRepository) SeedDefault(t motion.Tolerance) (*Exercise, error) {
	existing, err := r.List()
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	e := &Exercise{
		Name:           DefaultExerciseName,
		TargetDistance: t.TargetDistance,
		RelativeError:  t.RelativeError,
		LateralSlack:   t.LateralSlack,
	}
	if err := r.Create(e); err != nil {
		return nil, err
	}
	return e, nil
}
