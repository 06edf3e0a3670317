package chat

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ContextPatch is a partial update to an AnalysisContext. Nil fields are left
// untouched. An empty string on an optional field clears it.
type ContextPatch struct {
	Diagnosis       *string
	Summary         *string
	RefinedSymptoms *string
	SimilarDiseases []string
}

// Empty reports whether the patch changes nothing.
func (p ContextPatch) Empty() bool {
	return p.Diagnosis == nil && p.Summary == nil && p.RefinedSymptoms == nil && p.SimilarDiseases == nil
}

// Apply returns ctx with the patch applied.
func (p ContextPatch) Apply(ctx AnalysisContext) AnalysisContext {
	out := ctx.Clone()
	if p.Diagnosis != nil {
		if dx := strings.TrimSpace(*p.Diagnosis); dx != "" {
			out.Diagnosis = dx
		}
	}
	if p.Summary != nil {
		out.Summary = optional(*p.Summary)
	}
	if p.RefinedSymptoms != nil {
		out.RefinedSymptoms = optional(*p.RefinedSymptoms)
	}
	if p.SimilarDiseases != nil {
		out.SimilarDiseases = MergeNames(out.SimilarDiseases, p.SimilarDiseases)
	}
	return out
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

var patchKeys = map[string][]string{
	"diagnosis":        {"diagnosis"},
	"summary":          {"summary"},
	"refined_symptoms": {"refined_symptoms", "refinedSymptoms"},
	"similar_diseases": {"similar_diseases", "similarDiseases"},
}

// ParsePatch decodes a JSON patch object. Unknown keys are ignored and null
// values leave the field untouched. The whole patch is validated before it is
// returned, so a rejected patch never reaches the store.
func ParsePatch(raw []byte) (ContextPatch, error) {
	if !gjson.ValidBytes(raw) {
		return ContextPatch{}, fmt.Errorf("%w: body is not valid JSON", ErrInvalidPatch)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return ContextPatch{}, fmt.Errorf("%w: expected a JSON object", ErrInvalidPatch)
	}

	var patch ContextPatch
	var err error
	if patch.Diagnosis, err = patchText(root, "diagnosis"); err != nil {
		return ContextPatch{}, err
	}
	if patch.Summary, err = patchText(root, "summary"); err != nil {
		return ContextPatch{}, err
	}
	if patch.RefinedSymptoms, err = patchText(root, "refined_symptoms"); err != nil {
		return ContextPatch{}, err
	}

	sim := lookup(root, "similar_diseases")
	if sim.IsArray() {
		names := make([]string, 0, len(sim.Array()))
		for i, item := range sim.Array() {
			switch {
			case item.IsObject():
				names = append(names, item.Get("name").String())
			case item.IsArray():
				return ContextPatch{}, fmt.Errorf("%w: similar_diseases[%d] must be a string", ErrInvalidPatch, i)
			case item.Type == gjson.Null:
			default:
				names = append(names, item.String())
			}
		}
		patch.SimilarDiseases = names
	}
	return patch, nil
}

func lookup(root gjson.Result, field string) gjson.Result {
	for _, key := range patchKeys[field] {
		if v := root.Get(key); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func patchText(root gjson.Result, field string) (*string, error) {
	v := lookup(root, field)
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	if v.IsObject() || v.IsArray() {
		return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidPatch, field)
	}
	s := v.String()
	return &s, nil
}
