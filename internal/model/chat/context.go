package chat

import "strings"

// NoDiagnosis is stored when the upstream analysis carries no usable label.
const NoDiagnosis = "분석 결과 없음"

// AnalysisContext is the clinical analysis summary grounding a session.
type AnalysisContext struct {
	Diagnosis       string   `json:"diagnosis"`
	Summary         *string  `json:"summary"`
	SimilarDiseases []string `json:"similar_diseases"`
	RefinedSymptoms *string  `json:"refined_symptoms"`
}

// Normalize enforces the non-empty diagnosis and non-nil list invariants.
func (c AnalysisContext) Normalize() AnalysisContext {
	if strings.TrimSpace(c.Diagnosis) == "" {
		c.Diagnosis = NoDiagnosis
	}
	if c.SimilarDiseases == nil {
		c.SimilarDiseases = []string{}
	}
	return c
}

// Clone copies the context so callers never alias store-owned slices or pointers.
func (c AnalysisContext) Clone() AnalysisContext {
	out := c
	out.SimilarDiseases = append(make([]string, 0, len(c.SimilarDiseases)), c.SimilarDiseases...)
	if c.Summary != nil {
		v := *c.Summary
		out.Summary = &v
	}
	if c.RefinedSymptoms != nil {
		v := *c.RefinedSymptoms
		out.RefinedSymptoms = &v
	}
	return out
}

// SummaryText returns the summary or an empty string.
func (c AnalysisContext) SummaryText() string {
	if c.Summary == nil {
		return ""
	}
	return *c.Summary
}

// RefinedSymptomsText returns the refined symptoms or an empty string.
func (c AnalysisContext) RefinedSymptomsText() string {
	if c.RefinedSymptoms == nil {
		return ""
	}
	return *c.RefinedSymptoms
}

// MergeNames appends incoming names to existing ones, trimming each, dropping
// empties and keeping only the first occurrence of a name. Names that differ
// only by case count as duplicates.
func MergeNames(existing, incoming []string) []string {
	merged := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, group := range [][]string{existing, incoming} {
		for _, name := range group {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, name)
		}
	}
	return merged
}

// StringPtr is a small helper for optional text fields.
func StringPtr(v string) *string {
	return &v
}
