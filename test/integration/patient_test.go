package integration

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/nutriclinic/nutriclinic/internal/domain/patient"
	"github.com/nutriclinic/nutriclinic/internal/platform/apperr"
	"github.com/nutriclinic/nutriclinic/internal/platform/db"
	"github.com/nutriclinic/nutriclinic/internal/platform/phi"
)

func newTestPatient(email string) *patient.Patient {
	return &patient.Patient{
		FirstName:   "María",
		LastName:    "Jaramillo",
		Email:       email,
		Phone:       "0991234567",
		DateOfBirth: patient.NewDate(1992, time.April, 3),
		Gender:      "female",
		Address:     "Av. Universitaria 12, Loja",
		Occupation:  ptrStr("accountant"),
		CreatedAt:   patient.NewDate(2025, time.March, 10),
	}
}

func createTestPatient(t *testing.T, ctx context.Context, pool *pgxpool.Pool) *patient.Patient {
	t.Helper()
	p := newTestPatient(uniqueEmail("patient"))
	if err := patient.NewPatientRepo(pool, nil).Create(ctx, p); err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return p
}

func TestPatientRepo_CreateAndGet(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	repo := patient.NewPatientRepo(pool, nil)

	p := newTestPatient(uniqueEmail("get"))
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Fatal("expected id after create")
	}

	got, err := repo.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != p.Email || got.Phone != p.Phone || got.Address != p.Address {
		t.Errorf("contact mismatch: %+v", got)
	}
	if !got.DateOfBirth.Equal(p.DateOfBirth) || !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("dates mismatch: dob=%s created=%s", got.DateOfBirth, got.CreatedAt)
	}
	if got.Occupation == nil || *got.Occupation != "accountant" {
		t.Errorf("expected occupation, got %v", got.Occupation)
	}
}

func TestPatientRepo_DuplicateEmailIsConflict(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	repo := patient.NewPatientRepo(pool, nil)

	email := uniqueEmail("dup")
	if err := repo.Create(ctx, newTestPatient(email)); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	err := repo.Create(ctx, newTestPatient(email))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestPatientRepo_MissingIsNotFound(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	repo := patient.NewPatientRepo(pool, nil)

	if _, err := repo.GetByID(ctx, uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetByID: expected ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete: expected ErrNotFound, got %v", err)
	}
	if _, err := patient.NewBiometricsRepo(pool).GetByPatient(ctx, uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Biometrics GetByPatient: expected ErrNotFound, got %v", err)
	}
}

func TestBiometricsRepo_UpsertKeepsOneRowPerPatient(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	p := createTestPatient(t, ctx, pool)
	repo := patient.NewBiometricsRepo(pool)

	first := &patient.Biometrics{PatientID: p.ID, Glucose: ptrFloat(92), TotalCholesterol: ptrFloat(180)}
	if err := repo.Save(ctx, first); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	// A second record without an id must overwrite, not insert.
	d := patient.NewDate(2025, time.May, 2)
	second := &patient.Biometrics{PatientID: p.ID, Glucose: ptrFloat(101), Ferritin: ptrFloat(45), MeasuredDate: &d}
	if err := repo.Save(ctx, second); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("expected surviving id %s, got %s", first.ID, second.ID)
	}
	if n := countRows(t, ctx, pool, "biometrics", p.ID); n != 1 {
		t.Fatalf("expected 1 biometrics row, got %d", n)
	}

	got, err := repo.GetByPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByPatient: %v", err)
	}
	if got.Glucose == nil || *got.Glucose != 101 {
		t.Errorf("expected glucose 101, got %v", got.Glucose)
	}
	if got.TotalCholesterol != nil {
		t.Errorf("expected cholesterol cleared by overwrite, got %v", *got.TotalCholesterol)
	}
	if got.Ferritin == nil || *got.Ferritin != 45 {
		t.Errorf("expected ferritin 45, got %v", got.Ferritin)
	}
	if got.MeasuredDate == nil || !got.MeasuredDate.Equal(d) {
		t.Errorf("expected measured date %s, got %v", d, got.MeasuredDate)
	}
}

func TestAnthropometryRepo_RoundTrip(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	p := createTestPatient(t, ctx, pool)
	repo := patient.NewAnthropometryRepo(pool)

	d := patient.NewDate(2025, time.March, 10)
	a := &patient.Anthropometry{
		PatientID:          p.ID,
		Weight:             ptrFloat(70),
		Height:             ptrFloat(175),
		WaistCircumference: ptrFloat(80),
		HipCircumference:   ptrFloat(100),
		FatPercentage:      ptrFloat(21.5),
		MeasuredDate:       &d,
	}
	a.ApplyDerivedMetrics(d)
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetByPatient: %v", err)
	}
	if got.Weight == nil || *got.Weight != 70 || got.Height == nil || *got.Height != 175 {
		t.Errorf("weight/height mismatch: %v/%v", got.Weight, got.Height)
	}
	if got.FatPercentage == nil || *got.FatPercentage != 21.5 {
		t.Errorf("expected fat percentage 21.5, got %v", got.FatPercentage)
	}
	if got.BMI == nil || *got.BMI != *a.BMI {
		t.Errorf("expected bmi %v, got %v", *a.BMI, got.BMI)
	}
	if got.WaistHipRatio == nil || *got.WaistHipRatio != 0.8 {
		t.Errorf("expected waist/hip 0.8, got %v", got.WaistHipRatio)
	}
}

func TestPatientDelete_CascadesToSubRecords(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	p := createTestPatient(t, ctx, pool)

	if err := patient.NewClinicalHistoryRepo(pool, nil).Save(ctx, &patient.ClinicalHistory{PatientID: p.ID, Notes: ptrStr("n")}); err != nil {
		t.Fatalf("save history: %v", err)
	}
	if err := patient.NewBiometricsRepo(pool).Save(ctx, &patient.Biometrics{PatientID: p.ID, Iron: ptrFloat(80)}); err != nil {
		t.Fatalf("save biometrics: %v", err)
	}
	if err := patient.NewAnthropometryRepo(pool).Save(ctx, &patient.Anthropometry{PatientID: p.ID, Weight: ptrFloat(60)}); err != nil {
		t.Fatalf("save anthropometry: %v", err)
	}

	if err := patient.NewPatientRepo(pool, nil).Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	for _, table := range []string{"clinical_history", "biometrics", "anthropometry"} {
		if n := countRows(t, ctx, pool, table, p.ID); n != 0 {
			t.Errorf("%s: expected cascade delete, %d rows left", table, n)
		}
	}
}

func newPatientService(pool *pgxpool.Pool, enc phi.FieldEncryptor) *patient.Service {
	return patient.NewService(
		db.NewTransactor(pool),
		patient.NewPatientRepo(pool, enc),
		patient.NewClinicalHistoryRepo(pool, enc),
		patient.NewBiometricsRepo(pool),
		patient.NewAnthropometryRepo(pool),
		zerolog.Nop(),
	)
}

func TestPatientService_CreateUpdateDelete(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	svc := newPatientService(pool, nil)

	created, err := svc.CreatePatient(ctx, newTestPatient(uniqueEmail("svc")))
	if err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	if created.ClinicalHistory == nil || created.Biometrics != nil || created.Anthropometry != nil {
		t.Fatalf("unexpected aggregate after create: %+v", created)
	}

	updated, err := svc.UpdateAnthropometry(ctx, created.ID, &patient.Anthropometry{Weight: ptrFloat(80), Height: ptrFloat(180)})
	if err != nil {
		t.Fatalf("UpdateAnthropometry: %v", err)
	}
	if updated.Anthropometry == nil || updated.Anthropometry.BMI == nil {
		t.Fatalf("expected derived bmi, got %+v", updated.Anthropometry)
	}

	if err := svc.DeletePatient(ctx, created.ID); err != nil {
		t.Fatalf("DeletePatient: %v", err)
	}
	if _, err := svc.GetPatient(ctx, created.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if n := countRows(t, ctx, pool, "clinical_history", created.ID); n != 0 {
		t.Errorf("expected history removed, %d rows left", n)
	}
}

func TestPatientService_DuplicateEmailRollsBack(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	svc := newPatientService(pool, nil)

	email := uniqueEmail("svc-dup")
	if _, err := svc.CreatePatient(ctx, newTestPatient(email)); err != nil {
		t.Fatalf("first CreatePatient: %v", err)
	}
	if _, err := svc.CreatePatient(ctx, newTestPatient(email)); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	var n int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE email = $1`, email).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected one patient for %s, got %d", email, n)
	}
}

func TestPHI_EncryptedAtRest(t *testing.T) {
	pool := requireDB(t)
	ctx := context.Background()
	enc, err := phi.NewAESEncryptor(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("encryptor: %v", err)
	}
	svc := newPatientService(pool, enc)

	created, err := svc.CreatePatient(ctx, newTestPatient(uniqueEmail("phi")))
	if err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	const allergy = "peanuts"
	if _, err := svc.UpdateClinicalHistory(ctx, created.ID, &patient.ClinicalHistory{Allergies: ptrStr(allergy)}); err != nil {
		t.Fatalf("UpdateClinicalHistory: %v", err)
	}

	var rawPhone, rawAddress string
	var rawAllergies *string
	if err := pool.QueryRow(ctx, `SELECT phone, address FROM patient WHERE id = $1`, created.ID).Scan(&rawPhone, &rawAddress); err != nil {
		t.Fatal(err)
	}
	if err := pool.QueryRow(ctx, `SELECT allergies FROM clinical_history WHERE patient_id = $1`, created.ID).Scan(&rawAllergies); err != nil {
		t.Fatal(err)
	}
	if rawPhone == "0991234567" || rawAddress == "Av. Universitaria 12, Loja" {
		t.Error("expected contact fields stored encrypted")
	}
	if rawAllergies == nil || *rawAllergies == allergy {
		t.Errorf("expected allergies stored encrypted, got %v", rawAllergies)
	}

	got, err := svc.GetPatient(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	if got.Phone != "0991234567" || got.Address != "Av. Universitaria 12, Loja" {
		t.Errorf("expected decrypted contact, got %q / %q", got.Phone, got.Address)
	}
	if got.ClinicalHistory == nil || got.ClinicalHistory.Allergies == nil || *got.ClinicalHistory.Allergies != allergy {
		t.Errorf("expected decrypted allergies, got %+v", got.ClinicalHistory)
	}
	if got.ClinicalHistory.Notes != nil {
		t.Errorf("expected unset notes to stay NULL, got %v", *got.ClinicalHistory.Notes)
	}
}
