package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meltforce/liftlog/internal/models"
)

// CreateTemplate inserts a template with its exercises and sets and stores
// the new id in t.
func (db *DB) CreateTemplate(ctx context.Context, t *models.Template) error {
	return db.withTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO templates (name) VALUES ($1) RETURNING id`, t.Name,
		).Scan(&t.ID); err != nil {
			return fmt.Errorf("inserting template: %w", err)
		}

		batch := &pgx.Batch{}
		for i, ex := range t.Exercises {
			batch.Queue(`INSERT INTO template_exercises (template_id, position, exercise_name)
				VALUES ($1,$2,$3)`, t.ID, i, ex.ExerciseName)
			for j, s := range ex.Sets {
				typ := s.Type
				if typ == "" {
					typ = models.SetRegular
				}
				batch.Queue(`INSERT INTO template_sets (template_id, exercise_position, position,
					set_type, weight, reps, rest_seconds) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
					t.ID, i, j, string(typ), s.Weight, s.Reps, s.RestSeconds)
			}
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting template %q rows: %w", t.Name, err)
		}
		return nil
	})
}

// DeleteTemplate removes a template. Sessions started from it keep their
// rows and lose the reference.
func (db *DB) DeleteTemplate(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting template %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTemplate returns one template with its exercises and sets.
func (db *DB) GetTemplate(ctx context.Context, id int64) (*models.Template, error) {
	templates, err := db.templates(ctx, `WHERE t.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, fmt.Errorf("template %d: %w", id, ErrNotFound)
	}
	return &templates[0], nil
}

// ListTemplates returns all templates ordered by name.
func (db *DB) ListTemplates(ctx context.Context) ([]models.Template, error) {
	return db.templates(ctx, ``)
}

func (db *DB) templates(ctx context.Context, where string, args ...any) ([]models.Template, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT t.id, t.name, e.position, e.exercise_name,
		 s.position, s.set_type, s.weight, s.reps, s.rest_seconds
		 FROM templates t
		 LEFT JOIN template_exercises e ON e.template_id = t.id
		 LEFT JOIN template_sets s ON s.template_id = t.id AND s.exercise_position = e.position
		 `+where+`
		 ORDER BY t.name, t.id, e.position, s.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying templates: %w", err)
	}
	defer rows.Close()

	var result []models.Template
	for rows.Next() {
		var (
			id                int64
			name              string
			exPos, setPos     *int
			exName, setType   *string
			weight            *float64
			reps, restSeconds *int
		)
		if err := rows.Scan(&id, &name, &exPos, &exName, &setPos, &setType, &weight, &reps, &restSeconds); err != nil {
			return nil, fmt.Errorf("scanning template: %w", err)
		}
		if n := len(result); n == 0 || result[n-1].ID != id {
			result = append(result, models.Template{ID: id, Name: name})
		}
		t := &result[len(result)-1]
		if exPos == nil {
			continue
		}
		if n := len(t.Exercises); n == 0 || n-1 != *exPos {
			t.Exercises = append(t.Exercises, models.TemplateExercise{ExerciseName: *exName})
		}
		if setPos == nil {
			continue
		}
		ex := &t.Exercises[len(t.Exercises)-1]
		ex.Sets = append(ex.Sets, models.TemplateSet{
			Type:        models.SetType(*setType),
			Weight:      weight,
			Reps:        reps,
			RestSeconds: restSeconds,
		})
	}
	return result, rows.Err()
}
