package patient

import (
	"github.com/google/uuid"
)

// Patient maps to the patient table. The three sub-records are loaded by the
// service and are never written through this struct.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Email       string    `db:"email" json:"email"`
	Phone       string    `db:"phone" json:"phone"`
	DateOfBirth Date      `db:"date_of_birth" json:"date_of_birth"`
	Gender      string    `db:"gender" json:"gender"`
	Address     string    `db:"address" json:"address"`
	Occupation  *string   `db:"occupation" json:"occupation,omitempty"`
	CreatedAt   Date      `db:"created_at" json:"created_at"`

	ClinicalHistory *ClinicalHistory `db:"-" json:"clinical_history"`
	Biometrics      *Biometrics      `db:"-" json:"biometrics"`
	Anthropometry   *Anthropometry   `db:"-" json:"anthropometry"`
}

// ClinicalHistory maps to the clinical_history table. Every narrative field
// is optional free text.
type ClinicalHistory struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	PatientID           uuid.UUID `db:"patient_id" json:"-"`
	MedicalHistory      *string   `db:"medical_history" json:"medical_history"`
	SurgicalHistory     *string   `db:"surgical_history" json:"surgical_history"`
	FamilyHistory       *string   `db:"family_history" json:"family_history"`
	PastDiseases        *string   `db:"past_diseases" json:"past_diseases"`
	Complaint           *string   `db:"complaint" json:"complaint"`
	DietaryHabits       *string   `db:"dietary_habits" json:"dietary_habits"`
	PhysicalActivity    *string   `db:"physical_activity" json:"physical_activity"`
	AlcoholConsumption  *string   `db:"alcohol_consumption" json:"alcohol_consumption"`
	TobaccoUse          *string   `db:"tobacco_use" json:"tobacco_use"`
	CurrentMedications  *string   `db:"current_medications" json:"current_medications"`
	Allergies           *string   `db:"allergies" json:"allergies"`
	FoodIntolerances    *string   `db:"food_intolerances" json:"food_intolerances"`
	NutritionalGoal     *string   `db:"nutritional_goal" json:"nutritional_goal"`
	DietaryRestrictions *string   `db:"dietary_restrictions" json:"dietary_restrictions"`
	Notes               *string   `db:"notes" json:"notes"`
}

// narratives returns pointers to every text column, in column order.
func (h *ClinicalHistory) narratives() []**string {
	return []**string{
		&h.MedicalHistory, &h.SurgicalHistory, &h.FamilyHistory, &h.PastDiseases,
		&h.Complaint, &h.DietaryHabits, &h.PhysicalActivity, &h.AlcoholConsumption,
		&h.TobaccoUse, &h.CurrentMedications, &h.Allergies, &h.FoodIntolerances,
		&h.NutritionalGoal, &h.DietaryRestrictions, &h.Notes,
	}
}

// Biometrics maps to the biometrics table: laboratory values from one panel.
type Biometrics struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PatientID        uuid.UUID `db:"patient_id" json:"-"`
	Glucose          *float64  `db:"glucose" json:"glucose"`
	HemoglobinA1c    *float64  `db:"hemoglobin_a1c" json:"hemoglobin_a1c"`
	TotalCholesterol *float64  `db:"total_cholesterol" json:"total_cholesterol"`
	LDLCholesterol   *float64  `db:"ldl_cholesterol" json:"ldl_cholesterol"`
	HDLCholesterol   *float64  `db:"hdl_cholesterol" json:"hdl_cholesterol"`
	Triglycerides    *float64  `db:"triglycerides" json:"triglycerides"`
	VLDLCholesterol  *float64  `db:"vldl_cholesterol" json:"vldl_cholesterol"`
	AST              *float64  `db:"ast" json:"ast"`
	ALT              *float64  `db:"alt" json:"alt"`
	GGT              *float64  `db:"ggt" json:"ggt"`
	Bilirubin        *float64  `db:"bilirubin" json:"bilirubin"`
	Creatinine       *float64  `db:"creatinine" json:"creatinine"`
	BUN              *float64  `db:"bun" json:"bun"`
	TotalProteins    *float64  `db:"total_proteins" json:"total_proteins"`
	Albumin          *float64  `db:"albumin" json:"albumin"`
	Prealbumin       *float64  `db:"prealbumin" json:"prealbumin"`
	Hemoglobin       *float64  `db:"hemoglobin" json:"hemoglobin"`
	Hematocrit       *float64  `db:"hematocrit" json:"hematocrit"`
	WhiteBloodCells  *float64  `db:"white_blood_cells" json:"white_blood_cells"`
	Platelets        *float64  `db:"platelets" json:"platelets"`
	VitaminB12       *float64  `db:"vitamin_b12" json:"vitamin_b12"`
	Folacin          *float64  `db:"folacin" json:"folacin"`
	Iron             *float64  `db:"iron" json:"iron"`
	Ferritin         *float64  `db:"ferritin" json:"ferritin"`
	Zinc             *float64  `db:"zinc" json:"zinc"`
	Calcium          *float64  `db:"calcium" json:"calcium"`
	Magnesium        *float64  `db:"magnesium" json:"magnesium"`
	Phosphorus       *float64  `db:"phosphorus" json:"phosphorus"`
	MeasuredDate     *Date     `db:"measured_date" json:"measured_date"`
}

// Anthropometry maps to the anthropometry table. Weight is in kilograms and
// height in metres; BMI and WaistHipRatio are derived on every save.
type Anthropometry struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	PatientID           uuid.UUID `db:"patient_id" json:"-"`
	Weight              *float64  `db:"weight" json:"weight"`
	Height              *float64  `db:"height" json:"height"`
	WaistCircumference  *float64  `db:"waist_circumference" json:"waist_circumference"`
	HipCircumference    *float64  `db:"hip_circumference" json:"hip_circumference"`
	ArmCircumference    *float64  `db:"arm_circumference" json:"arm_circumference"`
	ThighCircumference  *float64  `db:"thigh_circumference" json:"thigh_circumference"`
	TricepsSkinFold     *float64  `db:"triceps_skin_fold" json:"triceps_skin_fold"`
	BicepsSkinFold      *float64  `db:"biceps_skin_fold" json:"biceps_skin_fold"`
	SubscapularSkinFold *float64  `db:"subscapular_skin_fold" json:"subscapular_skin_fold"`
	SuprailiacSkinFold  *float64  `db:"suprailiac_skin_fold" json:"suprailiac_skin_fold"`
	MuscleMass          *float64  `db:"muscle_mass" json:"muscle_mass"`
	BoneMass            *float64  `db:"bone_mass" json:"bone_mass"`
	WaterPercentage     *float64  `db:"water_percentage" json:"water_percentage"`
	FatPercentage       *float64  `db:"fat_percentage" json:"fat_percentage"`
	BMI                 *float64  `db:"bmi" json:"bmi"`
	WaistHipRatio       *float64  `db:"waist_hip_ratio" json:"waist_hip_ratio"`
	MeasuredDate        *Date     `db:"measured_date" json:"measured_date"`
}
