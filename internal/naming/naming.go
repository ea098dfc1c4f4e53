// Package naming infers cohort, agency and EHR metadata from export file names.
//
// RPA exports are named like
// "Axxess-LunaVistaHomeHealthcare_SignedOrderTemplate_2025-01-21.xlsx".
package naming

import (
	"path/filepath"
	"regexp"
	"strings"

	"orderaudit/internal/domain"
)

// cohortMarkers are checked in order; the first one found ends the cohort key.
var cohortMarkers = []string{
	"_signedordertemplate",
	"_unsignedordertemplate",
	"_signedorder",
	"_unsignedorder",
	"_signed",
	"_unsigned",
	"_ordertemplate",
}

var knownEHRs = []string{"Axxess", "Kinnser", "Athena", "WellSky", "HCHB"}

var agencyPattern = regexp.MustCompile(`(?i)(?:Axxess|Kinnser|Athena|WellSky|HCHB)-([^_]+)`)

// UnknownAgency is used when neither the file name nor the caller names one.
const UnknownAgency = "Unknown"

// Describe infers the full FileMeta for a file name.
func Describe(fileName string) domain.FileMeta {
	return domain.FileMeta{
		Name:         fileName,
		TemplateType: TemplateType(fileName),
		Cohort:       Cohort(fileName),
		CohortKey:    CohortKey(fileName),
		Agency:       Agency(fileName),
		EHR:          EHR(fileName),
	}
}

// CohortKey strips the signed/unsigned template suffix so both sides of a
// cohort share one key.
func CohortKey(fileName string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	lowered := strings.ToLower(base)
	for _, marker := range cohortMarkers {
		if idx := strings.Index(lowered, marker); idx != -1 {
			if key := strings.TrimRight(base[:idx], "-_ "); key != "" {
				return key
			}
			return base
		}
	}
	return base
}

// TemplateType classifies a file as signed, unsigned or mixed. "unsigned"
// contains "signed", so it is checked first.
func TemplateType(fileName string) string {
	lowered := strings.ToLower(fileName)
	switch {
	case strings.Contains(lowered, "unsigned"):
		return domain.TemplateUnsigned
	case strings.Contains(lowered, "signed"):
		return domain.TemplateSigned
	default:
		return domain.TemplateMixed
	}
}

// Cohort maps a file to its pairing side. Mixed exports pair as Unsigned.
func Cohort(fileName string) domain.CohortLabel {
	if TemplateType(fileName) == domain.TemplateSigned {
		return domain.CohortSigned
	}
	return domain.CohortUnsigned
}

// CohortForTemplate maps a template type to its pairing side.
func CohortForTemplate(templateType string) domain.CohortLabel {
	if templateType == domain.TemplateSigned {
		return domain.CohortSigned
	}
	return domain.CohortUnsigned
}

// Agency extracts the agency from an "<EHR>-<Agency>_" segment, falling back
// to the EHR name.
func Agency(fileName string) string {
	if m := agencyPattern.FindStringSubmatch(fileName); m != nil {
		return strings.ReplaceAll(m[1], "-", " ")
	}
	return EHR(fileName)
}

// EHR returns the EHR system named in the file, or UnknownAgency.
func EHR(fileName string) string {
	lowered := strings.ToLower(fileName)
	for _, ehr := range knownEHRs {
		if strings.Contains(lowered, strings.ToLower(ehr)) {
			return ehr
		}
	}
	return UnknownAgency
}

// IsOrderExport reports whether a listed object is an export this service
// audits: a supported extension and, when filter is set, a name containing it.
func IsOrderExport(fileName, filter string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		return false
	}
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(fileName), strings.ToLower(filter))
}
