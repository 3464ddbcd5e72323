package model

import "time"

// Patient represents a patient in the clinic
type Patient struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	Name           string     `json:"name"`
	BirthDate      *time.Time `json:"birth_date,omitempty"`
	MedicalHistory string     `json:"medical_history,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

// Appointment represents a scheduled or past appointment
type Appointment struct {
	ID          string            `json:"id"`
	TenantID    string            `json:"tenant_id"`
	PatientID   string            `json:"patient_id"`
	TherapistID string            `json:"therapist_id"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	Status      AppointmentStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Assessment represents a clinical assessment of a patient
type Assessment struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// Prescription represents a prescribed treatment item
type Prescription struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// PainLocation is a single pain region recorded in a diary entry
type PainLocation struct {
	Region    string   `json:"region"`
	Intensity float64  `json:"intensity"` // 0-10
	Qualities []string `json:"qualities,omitempty"`
}

// DiaryEntry is one day's symptom diary record. Entries are append-only;
// after creation they change only through an explicit correction action.
type DiaryEntry struct {
	ID                 string         `json:"id"`
	PatientID          string         `json:"patient_id"`
	Date               time.Time      `json:"date"`
	OverallPain        float64        `json:"overall_pain"`   // 0-10
	Energy             float64        `json:"energy"`         // 1-5
	SleepQuality       float64        `json:"sleep_quality"`  // 1-5
	Mood               float64        `json:"mood"`           // 1-5
	PainLocations      []PainLocation `json:"pain_locations,omitempty"`
	MedicationsTaken   []string       `json:"medications_taken,omitempty"`
	ExercisesCompleted []string       `json:"exercises_completed,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	IsComplete         bool           `json:"is_complete"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// MetricSample is a single dated observation of one metric
type MetricSample struct {
	Date   time.Time `json:"date"`
	Metric string    `json:"metric"`
	Value  float64   `json:"value"`
}

// Core diary metrics used by trend and pattern analysis
const (
	MetricPain   = "pain"
	MetricEnergy = "energy"
	MetricSleep  = "sleep"
	MetricMood   = "mood"
)

// MetricValue returns the value of a core metric from a diary entry.
// Unknown metric names return 0 and false.
func (e DiaryEntry) MetricValue(metric string) (float64, bool) {
	switch metric {
	case MetricPain:
		return e.OverallPain, true
	case MetricEnergy:
		return e.Energy, true
	case MetricSleep:
		return e.SleepQuality, true
	case MetricMood:
		return e.Mood, true
	}
	return 0, false
}

// MetricDomain returns the valid [min, max] range for a core metric.
// Projections are clamped to this range.
func MetricDomain(metric string) (float64, float64) {
	if metric == MetricPain {
		return 0, 10
	}
	return 1, 5
}

// Report represents a generated analysis report file
type Report struct {
	ID             string    `json:"id"`
	PatientID      string    `json:"patient_id"`
	DateRangeStart time.Time `json:"date_range_start"`
	DateRangeEnd   time.Time `json:"date_range_end"`
	FilePath       string    `json:"file_path"`
	GeneratedAt    time.Time `json:"generated_at"`
	CreatedAt      time.Time `json:"created_at"`
}
