package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about the logged history.
type DataStats struct {
	TotalSessions  int64          `json:"total_sessions"`
	TotalSets      int64          `json:"total_sets"`
	TotalTemplates int64          `json:"total_templates"`
	EarliestData   *time.Time     `json:"earliest_data"`
	LatestData     *time.Time     `json:"latest_data"`
	TopExercises   []ExerciseStat `json:"top_exercises"`
}

// ExerciseStat summarizes one exercise across completed sessions.
type ExerciseStat struct {
	Name     string `json:"name"`
	Sessions int64  `json:"sessions"`
	Sets     int64  `json:"sets"`
}

// topExercisesLimit caps DataStats.TopExercises.
const topExercisesLimit = 10

// GetDataStats returns aggregate statistics over completed sessions.
func (db *DB) GetDataStats(ctx context.Context) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), MIN(started_at), MAX(completed_at)
		 FROM sessions WHERE completed_at IS NOT NULL`,
	).Scan(&stats.TotalSessions, &stats.EarliestData, &stats.LatestData)
	if err != nil {
		return nil, fmt.Errorf("counting sessions: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM set_logs l JOIN sessions s ON s.id = l.session_id
		 WHERE s.completed_at IS NOT NULL AND l.completed_at IS NOT NULL`,
	).Scan(&stats.TotalSets)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	err = db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM templates`).Scan(&stats.TotalTemplates)
	if err != nil {
		return nil, fmt.Errorf("counting templates: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT e.exercise_name, COUNT(DISTINCT e.session_id), COUNT(l.id)
		 FROM exercise_logs e
		 JOIN sessions s ON s.id = e.session_id
		 LEFT JOIN set_logs l ON l.session_id = e.session_id AND l.exercise_id = e.id
		   AND l.completed_at IS NOT NULL
		 WHERE s.completed_at IS NOT NULL
		 GROUP BY e.exercise_name
		 ORDER BY COUNT(l.id) DESC, e.exercise_name
		 LIMIT $1`, topExercisesLimit)
	if err != nil {
		return nil, fmt.Errorf("querying exercise stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s ExerciseStat
		if err := rows.Scan(&s.Name, &s.Sessions, &s.Sets); err != nil {
			return nil, fmt.Errorf("scanning exercise stat: %w", err)
		}
		stats.TopExercises = append(stats.TopExercises, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
