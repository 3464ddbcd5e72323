package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/fisiocore/backend/pkg/model"
)

// ClinicalRepository manages appointments, assessments and prescriptions
type ClinicalRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewClinicalRepository creates a new ClinicalRepository
func NewClinicalRepository(db *pgxpool.Pool, logger *zap.Logger) *ClinicalRepository {
	return &ClinicalRepository{
		db:     db,
		logger: logger,
	}
}

// CreateAppointment inserts an appointment
func (r *ClinicalRepository) CreateAppointment(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (id, tenant_id, patient_id, therapist_id, scheduled_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

	_, err := r.db.Exec(ctx, query,
		appointment.ID,
		appointment.TenantID,
		appointment.PatientID,
		appointment.TherapistID,
		appointment.ScheduledAt,
		appointment.Status,
	)

	if err != nil {
		r.logger.Error("failed to create appointment", zap.Error(err), zap.String("appointment_id", appointment.ID))
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

// UpdateAppointmentStatus changes an appointment's status
func (r *ClinicalRepository) UpdateAppointmentStatus(ctx context.Context, appointmentID string, status model.AppointmentStatus) error {
	query := `
		UPDATE appointments
		SET status = $1
		WHERE id = $2
	`

	result, err := r.db.Exec(ctx, query, status, appointmentID)
	if err != nil {
		r.logger.Error("failed to update appointment status", zap.Error(err), zap.String("appointment_id", appointmentID))
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("appointment not found: %s", appointmentID)
	}

	return nil
}

// GetAppointmentsByPatient retrieves all appointments for one patient
func (r *ClinicalRepository) GetAppointmentsByPatient(ctx context.Context, patientID string) ([]model.Appointment, error) {
	query := `
		SELECT id, tenant_id, patient_id, therapist_id, scheduled_at, status, created_at
		FROM appointments
		WHERE patient_id = $1
		ORDER BY scheduled_at ASC
	`

	return r.queryAppointments(ctx, query, patientID)
}

// GetAppointmentsSince retrieves every tenant appointment scheduled after
// the given instant, for clinic-wide alert evaluation
func (r *ClinicalRepository) GetAppointmentsSince(ctx context.Context, tenantID string, since time.Time) ([]model.Appointment, error) {
	query := `
		SELECT id, tenant_id, patient_id, therapist_id, scheduled_at, status, created_at
		FROM appointments
		WHERE tenant_id = $1 AND scheduled_at >= $2
		ORDER BY scheduled_at ASC
	`

	return r.queryAppointments(ctx, query, tenantID, since)
}

func (r *ClinicalRepository) queryAppointments(ctx context.Context, query string, args ...any) ([]model.Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to get appointments", zap.Error(err))
		return nil, fmt.Errorf("failed to get appointments: %w", err)
	}
	defer rows.Close()

	var appointments []model.Appointment
	for rows.Next() {
		var appointment model.Appointment
		err := rows.Scan(
			&appointment.ID,
			&appointment.TenantID,
			&appointment.PatientID,
			&appointment.TherapistID,
			&appointment.ScheduledAt,
			&appointment.Status,
			&appointment.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan appointment", zap.Error(err))
			continue
		}
		appointments = append(appointments, appointment)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating appointments", zap.Error(err))
		return nil, fmt.Errorf("error iterating appointments: %w", err)
	}

	return appointments, nil
}

// CreateAssessment inserts a clinical assessment
func (r *ClinicalRepository) CreateAssessment(ctx context.Context, assessment *model.Assessment) error {
	query := `
		INSERT INTO assessments (id, patient_id, notes, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(ctx, query,
		assessment.ID,
		assessment.PatientID,
		assessment.Notes,
		assessment.CreatedAt,
	)

	if err != nil {
		r.logger.Error("failed to create assessment", zap.Error(err), zap.String("assessment_id", assessment.ID))
		return fmt.Errorf("failed to create assessment: %w", err)
	}

	return nil
}

// GetAssessmentsByPatient retrieves assessments for a patient, newest first
func (r *ClinicalRepository) GetAssessmentsByPatient(ctx context.Context, patientID string) ([]model.Assessment, error) {
	query := `
		SELECT id, patient_id, notes, created_at
		FROM assessments
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		r.logger.Error("failed to get assessments", zap.Error(err), zap.String("patient_id", patientID))
		return nil, fmt.Errorf("failed to get assessments: %w", err)
	}
	defer rows.Close()

	var assessments []model.Assessment
	for rows.Next() {
		var assessment model.Assessment
		err := rows.Scan(
			&assessment.ID,
			&assessment.PatientID,
			&assessment.Notes,
			&assessment.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan assessment", zap.Error(err))
			continue
		}
		assessments = append(assessments, assessment)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating assessments", zap.Error(err))
		return nil, fmt.Errorf("error iterating assessments: %w", err)
	}

	return assessments, nil
}

// GetActivePrescriptions retrieves active prescriptions for a patient
func (r *ClinicalRepository) GetActivePrescriptions(ctx context.Context, patientID string) ([]model.Prescription, error) {
	query := `
		SELECT id, patient_id, name, active, created_at
		FROM prescriptions
		WHERE patient_id = $1 AND active = TRUE
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, patientID)
	if err != nil {
		r.logger.Error("failed to get prescriptions", zap.Error(err), zap.String("patient_id", patientID))
		return nil, fmt.Errorf("failed to get prescriptions: %w", err)
	}
	defer rows.Close()

	var prescriptions []model.Prescription
	for rows.Next() {
		var prescription model.Prescription
		err := rows.Scan(
			&prescription.ID,
			&prescription.PatientID,
			&prescription.Name,
			&prescription.Active,
			&prescription.CreatedAt,
		)
		if err != nil {
			r.logger.Error("failed to scan prescription", zap.Error(err))
			continue
		}
		prescriptions = append(prescriptions, prescription)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating prescriptions", zap.Error(err))
		return nil, fmt.Errorf("error iterating prescriptions: %w", err)
	}

	return prescriptions, nil
}
