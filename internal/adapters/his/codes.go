package his

import (
	"strings"
)

// ICD-10 prefixes, written without the dot.
var (
	cardiovascularCodes       = []string{"I20", "I21", "I22", "I23", "I24", "I25", "I63", "I64", "G45", "I70"}
	hypertensionCodes         = []string{"I10", "I11", "I12", "I13", "I15"}
	learningDisabilityCodes   = []string{"F70", "F71", "F72", "F73", "F78", "F79", "Q90"}
	severeMentalIllnessCodes  = []string{"F20", "F21", "F22", "F23", "F24", "F25", "F28", "F29", "F31", "F322", "F323", "F33"}
	polycysticOvaryCodes      = []string{"E282"}
	gestationalDiabetesCodes  = []string{"O244"}
	familyHistoryDiabetesCode = []string{"Z833"}
)

// ATC prefixes.
var (
	statinCodes          = []string{"C10AA", "C10BA", "C10BX"}
	corticosteroidCodes  = []string{"H02AB"}
	antihypertensiveATCs = []string{"C02", "C03", "C07", "C08", "C09"}
)

var atypicalAntipsychoticCodes = []string{
	"N05AE03", // sertindole
	"N05AE04", // ziprasidone
	"N05AE05", // lurasidone
	"N05AH02", // clozapine
	"N05AH03", // olanzapine
	"N05AH04", // quetiapine
	"N05AH05", // asenapine
	"N05AL05", // amisulpride
	"N05AX08", // risperidone
	"N05AX12", // aripiprazole
	"N05AX13", // paliperidone
}

// Lab identifiers. A result matches on either its LOINC code or local test code.
var (
	hba1cLOINC   = []string{"4548-4", "17856-6", "59261-8"}
	hba1cTests   = []string{"HBA1C", "A1C"}
	glucoseLOINC = []string{"1558-6"}
	glucoseTests = []string{"FBG", "GLU-F", "FPG"}
)

// Accepted units. Values in any other unit are skipped, never converted.
const (
	unitHbA1c   = "mmol/mol"
	unitGlucose = "mmol/l"
	unitHeight  = "cm"
	unitWeight  = "kg"
)

func normalizeICD(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), ".", ""))
}

func normalizeATC(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func hasPrefix(code string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(code, p) {
			return true
		}
	}
	return false
}

func matchesLab(r LabResult, loinc, tests []string) bool {
	for _, c := range loinc {
		if r.LOINCCode == c {
			return true
		}
	}
	code := strings.ToUpper(strings.TrimSpace(r.TestCode))
	for _, c := range tests {
		if code == c {
			return true
		}
	}
	return false
}

func sameUnit(unit, want string) bool {
	return strings.EqualFold(strings.TrimSpace(unit), want)
}
