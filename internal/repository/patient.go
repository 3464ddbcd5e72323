package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/pkg/model"
)

// PatientRepository manages patient records
type PatientRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPatientRepository creates a new PatientRepository
func NewPatientRepository(db *pgxpool.Pool, logger *zap.Logger) *PatientRepository {
	return &PatientRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new patient
func (r *PatientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, tenant_id, name, birth_date, medical_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`

	_, err := r.db.Exec(ctx, query,
		patient.ID,
		patient.TenantID,
		patient.Name,
		patient.BirthDate,
		patient.MedicalHistory,
	)

	if err != nil {
		r.logger.Error("failed to create patient", zap.Error(err), zap.String("patient_id", patient.ID))
		return fmt.Errorf("failed to create patient: %w", err)
	}

	return nil
}

// GetByID retrieves a patient by ID
func (r *PatientRepository) GetByID(ctx context.Context, patientID string) (*model.Patient, error) {
	query := `
		SELECT id, tenant_id, name, birth_date, medical_history, created_at, updated_at, deleted_at
		FROM patients
		WHERE id = $1 AND deleted_at IS NULL
	`

	var patient model.Patient
	err := r.db.QueryRow(ctx, query, patientID).Scan(
		&patient.ID,
		&patient.TenantID,
		&patient.Name,
		&patient.BirthDate,
		&patient.MedicalHistory,
		&patient.CreatedAt,
		&patient.UpdatedAt,
		&patient.DeletedAt,
	)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("patient not found: %s", patientID)
		}
		r.logger.Error("failed to get patient", zap.Error(err), zap.String("patient_id", patientID))
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	return &patient, nil
}

// ListByTenant retrieves all active patients of a tenant
func (r *PatientRepository) ListByTenant(ctx context.Context, tenantID string) ([]model.Patient, error) {
	query := `
		SELECT id, tenant_id, name, birth_date, medical_history, created_at, updated_at, deleted_at
		FROM patients
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY name ASC
	`

	rows, err := r.db.Query(ctx, query, tenantID)
	if err != nil {
		r.logger.Error("failed to list patients", zap.Error(err), zap.String("tenant_id", tenantID))
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	var patients []model.Patient
	for rows.Next() {
		var patient model.Patient
		err := rows.Scan(
			&patient.ID,
			&patient.TenantID,
			&patient.Name,
			&patient.BirthDate,
			&patient.MedicalHistory,
			&patient.CreatedAt,
			&patient.UpdatedAt,
			&patient.DeletedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan patient", zap.Error(err))
			continue
		}
		patients = append(patients, patient)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating patients", zap.Error(err))
		return nil, fmt.Errorf("error iterating patients: %w", err)
	}

	return patients, nil
}

// SoftDelete marks a patient as deleted without removing the record
func (r *PatientRepository) SoftDelete(ctx context.Context, patientID string) error {
	query := `
		UPDATE patients
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query, patientID)
	if err != nil {
		r.logger.Error("failed to soft delete patient", zap.Error(err), zap.String("patient_id", patientID))
		return fmt.Errorf("failed to soft delete patient: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("patient not found: %s", patientID)
	}

	return nil
}
