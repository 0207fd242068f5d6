package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nutriclinic/nutriclinic/internal/platform/apperr"
	"github.com/nutriclinic/nutriclinic/internal/platform/db"
)

// Service owns the patient aggregate: the patient row plus its clinical
// history, biometrics and anthropometry. Every operation runs in a single
// transaction.
type Service struct {
	tx            db.Transactor
	patients      PatientRepository
	histories     ClinicalHistoryRepository
	biometrics    BiometricsRepository
	anthropometry AnthropometryRepository
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(
	tx db.Transactor,
	patients PatientRepository,
	histories ClinicalHistoryRepository,
	biometrics BiometricsRepository,
	anthropometry AnthropometryRepository,
	logger zerolog.Logger,
) *Service {
	return &Service{
		tx:            tx,
		patients:      patients,
		histories:     histories,
		biometrics:    biometrics,
		anthropometry: anthropometry,
		logger:        logger.With().Str("component", "patient").Logger(),
		now:           time.Now,
	}
}

func (s *Service) today() Date {
	return DateOf(s.now())
}

// validateDemographics checks the fields every patient must carry. Email is
// only checked on create since it cannot change afterwards.
func validateDemographics(p *Patient, withEmail bool) error {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("first_name", p.FirstName)
	check("last_name", p.LastName)
	if withEmail {
		check("email", p.Email)
	}
	check("phone", p.Phone)
	if p.DateOfBirth.IsZero() {
		missing = append(missing, "date_of_birth")
	}
	check("gender", p.Gender)
	check("address", p.Address)

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", apperr.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, in *Patient) (*Patient, error) {
	if err := validateDemographics(in, true); err != nil {
		return nil, err
	}
	p := &Patient{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Phone:       in.Phone,
		DateOfBirth: in.DateOfBirth,
		Gender:      in.Gender,
		Address:     in.Address,
		Occupation:  in.Occupation,
		CreatedAt:   s.today(),
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}
		h := &ClinicalHistory{PatientID: p.ID}
		if err := s.histories.Save(ctx, h); err != nil {
			return fmt.Errorf("create clinical history: %w", err)
		}
		p.ClinicalHistory = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("patient_id", p.ID.String()).Msg("patient created")
	return p, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.loadAggregate(ctx, id)
		return err
	})
	return p, err
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var (
		patients []*Patient
		total    int
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		patients, total, err = s.patients.List(ctx, limit, offset)
		if err != nil {
			return err
		}
		for _, p := range patients {
			if err := s.attachSubRecords(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

// UpdatePatient overwrites the editable demographics. Email, creation date
// and the sub-records are left untouched.
func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, in *Patient) (*Patient, error) {
	if err := validateDemographics(in, false); err != nil {
		return nil, err
	}
	var p *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.patients.GetByID(ctx, id)
		if err != nil {
			return err
		}
		existing.FirstName = in.FirstName
		existing.LastName = in.LastName
		existing.Phone = in.Phone
		existing.DateOfBirth = in.DateOfBirth
		existing.Gender = in.Gender
		existing.Address = in.Address
		existing.Occupation = in.Occupation
		if err := s.patients.Update(ctx, existing); err != nil {
			return err
		}
		p = existing
		return s.attachSubRecords(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePatient removes the patient and all three sub-records together.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		ok, err := s.patients.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("patient %s: %w", id, apperr.ErrNotFound)
		}
		if err := s.histories.DeleteByPatient(ctx, id); err != nil {
			return fmt.Errorf("delete clinical history: %w", err)
		}
		if err := s.biometrics.DeleteByPatient(ctx, id); err != nil {
			return fmt.Errorf("delete biometrics: %w", err)
		}
		if err := s.anthropometry.DeleteByPatient(ctx, id); err != nil {
			return fmt.Errorf("delete anthropometry: %w", err)
		}
		return s.patients.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info().Str("patient_id", id.String()).Msg("patient deleted")
	return nil
}

// UpdateClinicalHistory replaces every narrative field with the payload's.
// Fields omitted from the payload are cleared.
func (s *Service) UpdateClinicalHistory(ctx context.Context, patientID uuid.UUID, in *ClinicalHistory) (*Patient, error) {
	return s.updateSubRecord(ctx, patientID, func(ctx context.Context) error {
		h, err := s.histories.GetByPatient(ctx, patientID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		next := *in
		next.PatientID = patientID
		next.ID = uuid.Nil
		if h != nil {
			next.ID = h.ID
		}
		return s.histories.Save(ctx, &next)
	})
}

// UpdateBiometrics replaces every lab value with the payload's. A record
// created by this call gets today's date when none is supplied.
func (s *Service) UpdateBiometrics(ctx context.Context, patientID uuid.UUID, in *Biometrics) (*Patient, error) {
	return s.updateSubRecord(ctx, patientID, func(ctx context.Context) error {
		b, err := s.biometrics.GetByPatient(ctx, patientID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		next := *in
		next.PatientID = patientID
		next.ID = uuid.Nil
		if b != nil {
			next.ID = b.ID
		} else if next.MeasuredDate == nil || next.MeasuredDate.IsZero() {
			today := s.today()
			next.MeasuredDate = &today
		}
		return s.biometrics.Save(ctx, &next)
	})
}

// UpdateAnthropometry replaces every measurement with the payload's and
// recomputes BMI and waist-hip ratio, ignoring any supplied derived values.
func (s *Service) UpdateAnthropometry(ctx context.Context, patientID uuid.UUID, in *Anthropometry) (*Patient, error) {
	return s.updateSubRecord(ctx, patientID, func(ctx context.Context) error {
		a, err := s.anthropometry.GetByPatient(ctx, patientID)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		next := *in
		next.PatientID = patientID
		next.ID = uuid.Nil
		if a != nil {
			next.ID = a.ID
		}
		next.ApplyDerivedMetrics(s.today())
		return s.anthropometry.Save(ctx, &next)
	})
}

// updateSubRecord checks the patient exists, runs write and returns the
// refreshed aggregate, all in one transaction.
func (s *Service) updateSubRecord(ctx context.Context, patientID uuid.UUID, write func(ctx context.Context) error) (*Patient, error) {
	var p *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		ok, err := s.patients.Exists(ctx, patientID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("patient %s: %w", patientID, apperr.ErrNotFound)
		}
		if err := write(ctx); err != nil {
			return err
		}
		p, err = s.loadAggregate(ctx, patientID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) loadAggregate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachSubRecords(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// attachSubRecords loads the three sub-records; absent ones stay nil.
func (s *Service) attachSubRecords(ctx context.Context, p *Patient) error {
	h, err := s.histories.GetByPatient(ctx, p.ID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	b, err := s.biometrics.GetByPatient(ctx, p.ID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	a, err := s.anthropometry.GetByPatient(ctx, p.ID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	p.ClinicalHistory, p.Biometrics, p.Anthropometry = h, b, a
	return nil
}
