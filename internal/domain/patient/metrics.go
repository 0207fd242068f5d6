package patient

// CalculateBMI returns weight / height² (kg, m), or nil unless both inputs
// are present and height is positive.
func CalculateBMI(weight, height *float64) *float64 {
	if weight == nil || height == nil || *height <= 0 {
		return nil
	}
	v := *weight / (*height * *height)
	return &v
}

// CalculateWaistHipRatio returns waist / hip, or nil unless both inputs are
// present and hip is positive.
func CalculateWaistHipRatio(waist, hip *float64) *float64 {
	if waist == nil || hip == nil || *hip <= 0 {
		return nil
	}
	v := *waist / *hip
	return &v
}

// ApplyDerivedMetrics recomputes BMI and waist-hip ratio from the raw
// measurements, discarding whatever values were there before, and stamps
// today as the measurement date when none is set.
func (a *Anthropometry) ApplyDerivedMetrics(today Date) {
	a.BMI = CalculateBMI(a.Weight, a.Height)
	a.WaistHipRatio = CalculateWaistHipRatio(a.WaistCircumference, a.HipCircumference)
	if a.MeasuredDate == nil || a.MeasuredDate.IsZero() {
		d := today
		a.MeasuredDate = &d
	}
}
