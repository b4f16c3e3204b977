package icu

import "strings"

// RiskChecks evaluates the three scorecard rules independently:
// hypoglycaemia in a diabetic, cardio-respiratory collapse, and movement in a
// patient with a coma history.
func RiskChecks(v VitalsSnapshot, p PatientProfile) [3]bool {
	return [3]bool{
		p.Diabetic && v.Glucose < 70,
		v.HeartRate < 40 || v.Oxygen < 85,
		v.Movement && strings.Contains(p.History, "Coma"),
	}
}

// ClassifyRisk sums the triggered checks, capped at RiskCritical.
func ClassifyRisk(v VitalsSnapshot, p PatientProfile) RiskLevel {
	score := 0
	for _, triggered := range RiskChecks(v, p) {
		if triggered {
			score++
		}
	}
	if score > int(RiskCritical) {
		score = int(RiskCritical)
	}
	return RiskLevel(score)
}
