package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/pkg/model"
)

// DiaryRepository manages symptom diary entries
type DiaryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewDiaryRepository creates a new DiaryRepository
func NewDiaryRepository(db *pgxpool.Pool, logger *zap.Logger) *DiaryRepository {
	return &DiaryRepository{
		db:     db,
		logger: logger,
	}
}

// CreateEntry inserts a diary entry. Pain locations travel as JSONB so the
// per-region quality lists keep their structure.
func (r *DiaryRepository) CreateEntry(ctx context.Context, entry *model.DiaryEntry) error {
	painLocations, err := json.Marshal(entry.PainLocations)
	if err != nil {
		return fmt.Errorf("failed to marshal pain locations: %w", err)
	}

	query := `
		INSERT INTO diary_entries (
			id, patient_id, date, overall_pain, energy, sleep_quality, mood,
			pain_locations, medications_taken, exercises_completed,
			notes, is_complete, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`

	_, err = r.db.Exec(ctx, query,
		entry.ID,
		entry.PatientID,
		entry.Date,
		entry.OverallPain,
		entry.Energy,
		entry.SleepQuality,
		entry.Mood,
		painLocations,
		entry.MedicationsTaken,
		entry.ExercisesCompleted,
		entry.Notes,
		entry.IsComplete,
	)

	if err != nil {
		r.logger.Error("failed to create diary entry",
			zap.Error(err),
			zap.String("entry_id", entry.ID),
			zap.String("patient_id", entry.PatientID),
		)
		return fmt.Errorf("failed to create diary entry: %w", err)
	}

	return nil
}

// GetEntriesByPatient retrieves entries within a date range, oldest first.
// The ascending order is what the trend analysis expects.
func (r *DiaryRepository) GetEntriesByPatient(ctx context.Context, patientID string, startDate, endDate time.Time) ([]model.DiaryEntry, error) {
	query := `
		SELECT id, patient_id, date, overall_pain, energy, sleep_quality, mood,
		       pain_locations, medications_taken, exercises_completed,
		       notes, is_complete, created_at, updated_at
		FROM diary_entries
		WHERE patient_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.db.Query(ctx, query, patientID, startDate, endDate)
	if err != nil {
		r.logger.Error("failed to get diary entries",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to get diary entries: %w", err)
	}
	defer rows.Close()

	var entries []model.DiaryEntry
	for rows.Next() {
		var entry model.DiaryEntry
		var painLocations []byte
		err := rows.Scan(
			&entry.ID,
			&entry.PatientID,
			&entry.Date,
			&entry.OverallPain,
			&entry.Energy,
			&entry.SleepQuality,
			&entry.Mood,
			&painLocations,
			&entry.MedicationsTaken,
			&entry.ExercisesCompleted,
			&entry.Notes,
			&entry.IsComplete,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan diary entry", zap.Error(err))
			continue
		}
		if len(painLocations) > 0 {
			if err := json.Unmarshal(painLocations, &entry.PainLocations); err != nil {
				r.logger.Error("failed to unmarshal pain locations",
					zap.Error(err),
					zap.String("entry_id", entry.ID),
				)
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating diary entries", zap.Error(err))
		return nil, fmt.Errorf("error iterating diary entries: %w", err)
	}

	return entries, nil
}

// CountEntriesSince counts diary entries recorded after the given instant
func (r *DiaryRepository) CountEntriesSince(ctx context.Context, patientID string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM diary_entries
		WHERE patient_id = $1 AND date >= $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, patientID, since).Scan(&count); err != nil {
		r.logger.Error("failed to count diary entries",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return 0, fmt.Errorf("failed to count diary entries: %w", err)
	}

	return count, nil
}
