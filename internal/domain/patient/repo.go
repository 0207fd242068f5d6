package patient

import (
	"context"

	"github.com/google/uuid"
)

// PatientRepository persists Patient rows. GetByID and Delete return an
// error wrapping apperr.ErrNotFound when the row is absent; Create returns
// apperr.ErrConflict for a duplicate email.
type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Sub-record repositories. Save inserts the record, or overwrites every
// column of the one the patient already has, and sets its ID.
// GetByPatient wraps apperr.ErrNotFound when the patient has no record.

type ClinicalHistoryRepository interface {
	Save(ctx context.Context, h *ClinicalHistory) error
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*ClinicalHistory, error)
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) error
}

type BiometricsRepository interface {
	Save(ctx context.Context, b *Biometrics) error
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*Biometrics, error)
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) error
}

type AnthropometryRepository interface {
	Save(ctx context.Context, a *Anthropometry) error
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*Anthropometry, error)
	DeleteByPatient(ctx context.Context, patientID uuid.UUID) error
}
