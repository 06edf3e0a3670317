// Package mapper normalizes the loosely shaped payloads emitted by upstream
// analysis producers into a chat.AnalysisContext.
package mapper

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/skinmatch/chatbot/backend/internal/model/chat"
)

// ErrInvalidPayload is returned when the payload is not a JSON object.
var ErrInvalidPayload = errors.New("invalid analysis payload")

// Rule extracts similar disease names from one known payload shape.
type Rule struct {
	Name    string
	Extract func(root gjson.Result) []string
}

// SimilarDiseaseRules are tried in order; the first non-empty result wins.
var SimilarDiseaseRules = []Rule{
	{Name: "metadata.similar_diseases_scored", Extract: ScoredNames},
	{Name: "similar_diseases", Extract: ListedNames},
	{Name: "similar_conditions", Extract: CommaSeparatedNames},
}

var (
	diagnosisKeys       = []string{"diagnosis", "predicted_disease"}
	summaryKeys         = []string{"recommendations", "summary"}
	refinedSymptomsKeys = []string{"refined_symptoms", "refined_text"}
)

// Map parses raw JSON and maps it to a context.
func Map(payload []byte) (chat.AnalysisContext, error) {
	if !gjson.ValidBytes(payload) {
		return chat.AnalysisContext{}, fmt.Errorf("%w: body is not valid JSON", ErrInvalidPayload)
	}
	return MapResult(gjson.ParseBytes(payload))
}

// MapResult maps an already parsed JSON value. Missing or unusable fields
// degrade to the sentinel diagnosis, absent optional text and an empty list.
func MapResult(root gjson.Result) (chat.AnalysisContext, error) {
	if !root.IsObject() {
		return chat.AnalysisContext{}, fmt.Errorf("%w: expected a JSON object", ErrInvalidPayload)
	}

	ctx := chat.AnalysisContext{
		Diagnosis:       chat.NoDiagnosis,
		SimilarDiseases: SimilarDiseases(root),
	}
	if dx, ok := firstText(root, diagnosisKeys); ok {
		ctx.Diagnosis = dx
	}
	if summary, ok := firstText(root, summaryKeys); ok {
		ctx.Summary = &summary
	}
	if refined, ok := firstText(root, refinedSymptomsKeys); ok {
		ctx.RefinedSymptoms = &refined
	}
	return ctx, nil
}

// SimilarDiseases runs SimilarDiseaseRules and never returns nil.
func SimilarDiseases(root gjson.Result) []string {
	for _, rule := range SimilarDiseaseRules {
		if names := rule.Extract(root); len(names) > 0 {
			return names
		}
	}
	return []string{}
}

// ScoredNames reads metadata.similar_diseases_scored: [{name, score}, ...].
func ScoredNames(root gjson.Result) []string {
	scored := root.Get("metadata.similar_diseases_scored")
	if !scored.IsArray() {
		return nil
	}
	var names []string
	for _, item := range scored.Array() {
		if !item.IsObject() {
			continue
		}
		if name, ok := text(item.Get("name")); ok {
			names = append(names, strings.TrimSpace(name))
		}
	}
	return names
}

// ListedNames reads similar_diseases as plain strings or {name} objects.
func ListedNames(root gjson.Result) []string {
	listed := root.Get("similar_diseases")
	if !listed.IsArray() {
		return nil
	}
	var names []string
	for _, item := range listed.Array() {
		var name string
		switch {
		case item.Type == gjson.String:
			name = item.Str
		case item.IsObject():
			name, _ = text(item.Get("name"))
		}
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// CommaSeparatedNames reads similar_conditions as "A, B, C".
func CommaSeparatedNames(root gjson.Result) []string {
	raw := root.Get("similar_conditions")
	if raw.Type != gjson.String {
		return nil
	}
	var names []string
	for _, part := range strings.Split(raw.Str, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

func firstText(root gjson.Result, keys []string) (string, bool) {
	for _, key := range keys {
		if v, ok := text(root.Get(key)); ok {
			return v, true
		}
	}
	return "", false
}

// text stringifies scalars and lists of scalars. Blank strings, zero,
// false, null and objects are treated as missing.
func text(v gjson.Result) (string, bool) {
	switch v.Type {
	case gjson.String:
		if strings.TrimSpace(v.Str) == "" {
			return "", false
		}
		return v.Str, true
	case gjson.Number:
		if v.Num == 0 {
			return "", false
		}
		return v.Raw, true
	case gjson.True:
		return "true", true
	case gjson.JSON:
		if !v.IsArray() {
			return "", false
		}
		var lines []string
		for _, item := range v.Array() {
			if line, ok := text(item); ok && !item.IsArray() {
				lines = append(lines, line)
			}
		}
		if len(lines) == 0 {
			return "", false
		}
		return strings.Join(lines, "\n"), true
	default:
		return "", false
	}
}
