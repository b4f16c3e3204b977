package icu

import "sort"

// vitalsTable and protocolTable are read-only after package initialisation.
var vitalsTable = map[int]VitalsSnapshot{
	1: {HeartRate: 82, Oxygen: 96, Glucose: 61, Movement: false},
	2: {HeartRate: 118, Oxygen: 91, Glucose: 142, Movement: false},
	3: {HeartRate: 96, Oxygen: 94, Glucose: 88, Movement: true},
	4: {HeartRate: 124, Oxygen: 79, Glucose: 105, Movement: false},
	5: {HeartRate: 28, Oxygen: 76, Glucose: 114, Movement: false},
}

var protocolTable = map[int]ProtocolRecord{
	1: {
		Title:       "CASE 1: Insulin Deficiency",
		Explanation: "Blood glucose has dropped below the safe threshold for an insulin-dependent patient. The insulin pump protocol is started and the care team is alerted.",
		Topic:       "/icu/bed1/insulin",
		Actions: []string{
			"Trigger insulin pump injection (rapid-acting, per sliding scale)",
			"Update EHR with insulin administration record",
			"Notify ICU team of insulin protocol activation",
		},
		Critical: true,
	},
	2: {
		Title:       "CASE 2: Critical Drug Unavailability",
		Explanation: "The prescribed critical medication is out of stock in the ward pharmacy. An approved substitute is located and the transfer is requested.",
		Topic:       "/icu/bed2/pharmacy",
		Actions: []string{
			"Query hospital pharmacy network for stock",
			"Propose approved therapeutic substitute to attending physician",
			"Request emergency inter-ward drug transfer",
			"Log substitution decision in EHR",
		},
		Critical: true,
	},
	3: {
		Title:       "CASE 3: Awakening From Coma",
		Explanation: "Movement sensors detect activity in a patient with a recorded coma. Neurological assessment is prioritised and sedation is reviewed.",
		Topic:       "/icu/bed3/neuro",
		Actions: []string{
			"Alert neurologist on call",
			"Run Glasgow Coma Scale assessment",
			"Review and adjust sedation orders",
			"Notify family contact",
		},
		Critical: true,
	},
	4: {
		Title:       "CASE 4: Oxygen Deficiency",
		Explanation: "Oxygen saturation is below 85%. Supplemental oxygen is escalated and the respiratory team is paged.",
		Topic:       "/icu/bed4/oxygen",
		Actions: []string{
			"Increase oxygen flow via high-flow nasal cannula",
			"Page respiratory therapist",
			"Prepare non-invasive ventilation",
			"Order arterial blood gas",
		},
		Critical: true,
	},
	5: {
		Title:       "CASE 5: Cardiac Arrest",
		Explanation: "Heart rate has collapsed below 40 bpm with falling oxygen saturation. Code Blue is called and advanced cardiac life support begins.",
		Topic:       "/icu/bed5/cardiac",
		Actions: []string{
			"Call Code Blue",
			"Start CPR and attach defibrillator",
			"Administer epinephrine per ACLS protocol",
			"Record event timeline in EHR",
		},
		Critical: true,
	},
}

var supportedCases = func() []int {
	ids := make([]int, 0, len(protocolTable))
	for id := range protocolTable {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}()

// GetVitals returns the fixed snapshot for caseID, or the empty snapshot for
// an unsupported id.
func GetVitals(caseID int) VitalsSnapshot {
	return vitalsTable[caseID]
}

// GetProtocol returns the protocol for caseID, or the empty record for an
// unsupported id. The action slice is a copy.
func GetProtocol(caseID int) ProtocolRecord {
	rec, ok := protocolTable[caseID]
	if !ok {
		return ProtocolRecord{}
	}
	rec.Actions = append([]string(nil), rec.Actions...)
	return rec
}

// IsSupportedCase reports whether caseID has a table entry.
func IsSupportedCase(caseID int) bool {
	_, ok := protocolTable[caseID]
	return ok
}

// SupportedCases returns the supported case ids in ascending order.
func SupportedCases() []int {
	return append([]int(nil), supportedCases...)
}

// CaseSummary is the short form used by case pickers.
type CaseSummary struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Critical bool   `json:"critical"`
}

func CaseSummaries() []CaseSummary {
	out := make([]CaseSummary, 0, len(supportedCases))
	for _, id := range supportedCases {
		rec := protocolTable[id]
		out = append(out, CaseSummary{ID: id, Title: rec.Title, Critical: rec.Critical})
	}
	return out
}
