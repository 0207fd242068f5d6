package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nutriclinic/nutriclinic/internal/platform/apperr"
	"github.com/nutriclinic/nutriclinic/internal/platform/db"
	"github.com/nutriclinic/nutriclinic/internal/platform/phi"
)

// -- Patient Repository --

type patientRepoPG struct {
	pool      *pgxpool.Pool
	encryptor phi.FieldEncryptor
}

// NewPatientRepo returns a Postgres PatientRepository. Phone and address are
// encrypted with enc before storage; a nil enc stores them as plaintext.
func NewPatientRepo(pool *pgxpool.Pool, enc phi.FieldEncryptor) PatientRepository {
	if enc == nil {
		enc = phi.Plaintext{}
	}
	return &patientRepoPG{pool: pool, encryptor: enc}
}

const patientCols = `id, first_name, last_name, email, phone, date_of_birth, gender, address, occupation, created_at`

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	phone, address, err := r.sealContact(p)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}

	_, err = db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO patient (`+patientCols+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.FirstName, p.LastName, p.Email, phone, p.DateOfBirth, p.Gender, address, p.Occupation, p.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("a patient with email %s already exists: %w", p.Email, apperr.ErrConflict)
	}
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("patient %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := r.openContact(p); err != nil {
		return nil, fmt.Errorf("patient get by id: %w", err)
	}
	return p, nil
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	q := db.Conn(ctx, r.pool)
	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, `SELECT `+patientCols+` FROM patient ORDER BY last_name, first_name, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	patients := make([]*Patient, 0, limit)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		if err := r.openContact(p); err != nil {
			return nil, 0, fmt.Errorf("patient list: %w", err)
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	phone, address, err := r.sealContact(p)
	if err != nil {
		return fmt.Errorf("patient update: %w", err)
	}
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET
			first_name=$2, last_name=$3, phone=$4, date_of_birth=$5, gender=$6, address=$7, occupation=$8
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, phone, p.DateOfBirth, p.Gender, address, p.Occupation,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patient %s: %w", p.ID, apperr.ErrNotFound)
	}
	return nil
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patient %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (r *patientRepoPG) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patient WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *patientRepoPG) sealContact(p *Patient) (phone, address string, err error) {
	if phone, err = r.encryptor.Encrypt(p.Phone); err != nil {
		return "", "", err
	}
	if address, err = r.encryptor.Encrypt(p.Address); err != nil {
		return "", "", err
	}
	return phone, address, nil
}

func (r *patientRepoPG) openContact(p *Patient) (err error) {
	if p.Phone, err = r.encryptor.Decrypt(p.Phone); err != nil {
		return err
	}
	p.Address, err = r.encryptor.Decrypt(p.Address)
	return err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.DateOfBirth,
		&p.Gender, &p.Address, &p.Occupation, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// -- Sub-record Repositories --

// upsertSQL inserts a sub-record or, when the patient already owns one,
// overwrites every listed column and returns the surviving id.
func upsertSQL(table string, cols []string) string {
	all := append([]string{"id", "patient_id"}, cols...)
	placeholders := make([]string, len(all))
	for i := range all {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = c + " = EXCLUDED." + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (patient_id) DO UPDATE SET %s RETURNING id",
		table, strings.Join(all, ", "), strings.Join(placeholders, ", "), strings.Join(set, ", "))
}

func selectSQL(table string, cols []string) string {
	return fmt.Sprintf("SELECT id, patient_id, %s FROM %s WHERE patient_id = $1", strings.Join(cols, ", "), table)
}

// save runs the upsert for a record whose column pointers are fields.
func save(ctx context.Context, q db.Querier, sql string, id *uuid.UUID, patientID uuid.UUID, fields []interface{}) error {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	args := append([]interface{}{*id, patientID}, fields...)
	return q.QueryRow(ctx, sql, args...).Scan(id)
}

func deleteByPatient(ctx context.Context, q db.Querier, table string, patientID uuid.UUID) error {
	_, err := q.Exec(ctx, `DELETE FROM `+table+` WHERE patient_id = $1`, patientID)
	return err
}

var historyCols = []string{
	"medical_history", "surgical_history", "family_history", "past_diseases",
	"complaint", "dietary_habits", "physical_activity", "alcohol_consumption",
	"tobacco_use", "current_medications", "allergies", "food_intolerances",
	"nutritional_goal", "dietary_restrictions", "notes",
}

var (
	historyUpsert = upsertSQL("clinical_history", historyCols)
	historySelect = selectSQL("clinical_history", historyCols)
)

type historyRepoPG struct {
	pool      *pgxpool.Pool
	encryptor phi.FieldEncryptor
}

// NewClinicalHistoryRepo returns a Postgres ClinicalHistoryRepository. All
// narrative columns are encrypted with enc; nil stores plaintext.
func NewClinicalHistoryRepo(pool *pgxpool.Pool, enc phi.FieldEncryptor) ClinicalHistoryRepository {
	if enc == nil {
		enc = phi.Plaintext{}
	}
	return &historyRepoPG{pool: pool, encryptor: enc}
}

func (r *historyRepoPG) Save(ctx context.Context, h *ClinicalHistory) error {
	narratives := h.narratives()
	sealed := make([]interface{}, len(narratives))
	for i, f := range narratives {
		v, err := phi.EncryptPtr(r.encryptor, *f)
		if err != nil {
			return fmt.Errorf("clinical history save: %w", err)
		}
		sealed[i] = v
	}
	return save(ctx, db.Conn(ctx, r.pool), historyUpsert, &h.ID, h.PatientID, sealed)
}

func (r *historyRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*ClinicalHistory, error) {
	var h ClinicalHistory
	dest := []interface{}{&h.ID, &h.PatientID}
	for _, f := range h.narratives() {
		dest = append(dest, f)
	}
	err := db.Conn(ctx, r.pool).QueryRow(ctx, historySelect, patientID).Scan(dest...)
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("clinical history for patient %s: %w", patientID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	for _, f := range h.narratives() {
		if *f, err = phi.DecryptPtr(r.encryptor, *f); err != nil {
			return nil, fmt.Errorf("clinical history get: %w", err)
		}
	}
	return &h, nil
}

func (r *historyRepoPG) DeleteByPatient(ctx context.Context, patientID uuid.UUID) error {
	return deleteByPatient(ctx, db.Conn(ctx, r.pool), "clinical_history", patientID)
}

var biometricsCols = []string{
	"glucose", "hemoglobin_a1c", "total_cholesterol", "ldl_cholesterol",
	"hdl_cholesterol", "triglycerides", "vldl_cholesterol", "ast", "alt", "ggt",
	"bilirubin", "creatinine", "bun", "total_proteins", "albumin", "prealbumin",
	"hemoglobin", "hematocrit", "white_blood_cells", "platelets", "vitamin_b12",
	"folacin", "iron", "ferritin", "zinc", "calcium", "magnesium", "phosphorus",
	"measured_date",
}

var (
	biometricsUpsert = upsertSQL("biometrics", biometricsCols)
	biometricsSelect = selectSQL("biometrics", biometricsCols)
)

// fields returns pointers to the biometrics columns in biometricsCols order.
func (b *Biometrics) fields() []interface{} {
	return []interface{}{
		&b.Glucose, &b.HemoglobinA1c, &b.TotalCholesterol, &b.LDLCholesterol,
		&b.HDLCholesterol, &b.Triglycerides, &b.VLDLCholesterol, &b.AST, &b.ALT, &b.GGT,
		&b.Bilirubin, &b.Creatinine, &b.BUN, &b.TotalProteins, &b.Albumin, &b.Prealbumin,
		&b.Hemoglobin, &b.Hematocrit, &b.WhiteBloodCells, &b.Platelets, &b.VitaminB12,
		&b.Folacin, &b.Iron, &b.Ferritin, &b.Zinc, &b.Calcium, &b.Magnesium, &b.Phosphorus,
		&b.MeasuredDate,
	}
}

type biometricsRepoPG struct {
	pool *pgxpool.Pool
}

func NewBiometricsRepo(pool *pgxpool.Pool) BiometricsRepository {
	return &biometricsRepoPG{pool: pool}
}

func (r *biometricsRepoPG) Save(ctx context.Context, b *Biometrics) error {
	return save(ctx, db.Conn(ctx, r.pool), biometricsUpsert, &b.ID, b.PatientID, b.fields())
}

func (r *biometricsRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*Biometrics, error) {
	var b Biometrics
	dest := append([]interface{}{&b.ID, &b.PatientID}, b.fields()...)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, biometricsSelect, patientID).Scan(dest...)
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("biometrics for patient %s: %w", patientID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *biometricsRepoPG) DeleteByPatient(ctx context.Context, patientID uuid.UUID) error {
	return deleteByPatient(ctx, db.Conn(ctx, r.pool), "biometrics", patientID)
}

var anthropometryCols = []string{
	"weight", "height", "waist_circumference", "hip_circumference",
	"arm_circumference", "thigh_circumference", "triceps_skin_fold",
	"biceps_skin_fold", "subscapular_skin_fold", "suprailiac_skin_fold",
	"muscle_mass", "bone_mass", "water_percentage", "fat_percentage",
	"bmi", "waist_hip_ratio", "measured_date",
}

var (
	anthropometryUpsert = upsertSQL("anthropometry", anthropometryCols)
	anthropometrySelect = selectSQL("anthropometry", anthropometryCols)
)

func (a *Anthropometry) fields() []interface{} {
	return []interface{}{
		&a.Weight, &a.Height, &a.WaistCircumference, &a.HipCircumference,
		&a.ArmCircumference, &a.ThighCircumference, &a.TricepsSkinFold,
		&a.BicepsSkinFold, &a.SubscapularSkinFold, &a.SuprailiacSkinFold,
		&a.MuscleMass, &a.BoneMass, &a.WaterPercentage, &a.FatPercentage,
		&a.BMI, &a.WaistHipRatio, &a.MeasuredDate,
	}
}

type anthropometryRepoPG struct {
	pool *pgxpool.Pool
}

func NewAnthropometryRepo(pool *pgxpool.Pool) AnthropometryRepository {
	return &anthropometryRepoPG{pool: pool}
}

func (r *anthropometryRepoPG) Save(ctx context.Context, a *Anthropometry) error {
	return save(ctx, db.Conn(ctx, r.pool), anthropometryUpsert, &a.ID, a.PatientID, a.fields())
}

func (r *anthropometryRepoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*Anthropometry, error) {
	var a Anthropometry
	dest := append([]interface{}{&a.ID, &a.PatientID}, a.fields()...)
	err := db.Conn(ctx, r.pool).QueryRow(ctx, anthropometrySelect, patientID).Scan(dest...)
	if db.IsNoRows(err) {
		return nil, fmt.Errorf("anthropometry for patient %s: %w", patientID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *anthropometryRepoPG) DeleteByPatient(ctx context.Context, patientID uuid.UUID) error {
	return deleteByPatient(ctx, db.Conn(ctx, r.pool), "anthropometry", patientID)
}
