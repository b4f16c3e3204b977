package icu

// BuildSession assembles the result for one case selection. Unsupported ids
// produce empty vitals and protocol rather than an error.
func BuildSession(caseID int, p PatientProfile) SessionResult {
	vitals := GetVitals(caseID)
	protocol := GetProtocol(caseID)
	return SessionResult{
		CaseID:   caseID,
		Vitals:   vitals,
		Protocol: protocol,
		Risk:     ClassifyRisk(vitals, p),
		Patient:  p,
	}
}

// BuildExportableSession is BuildSession for callers that go on to export or
// notify; it rejects unsupported ids with *UnknownCaseError.
func BuildExportableSession(caseID int, p PatientProfile) (SessionResult, error) {
	s := BuildSession(caseID, p)
	if !s.Exportable() {
		return SessionResult{}, &UnknownCaseError{CaseID: caseID}
	}
	return s, nil
}
