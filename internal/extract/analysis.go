package extract

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/lead-enricher/internal/model"
)

// analysisSchema checks types only; every field may be absent or null.
const analysisSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "summary": {"type": ["string", "null"]},
    "prices": {"type": ["array", "null"], "items": {"type": ["string", "number"]}},
    "discounted_prices": {"type": ["array", "null"], "items": {"type": ["string", "number"]}},
    "niche": {"type": ["string", "null"]},
    "other_contact": {"type": ["string", "null"]}
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func analysisValidator() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("analysis.json", strings.NewReader(analysisSchema)); err != nil {
			schemaErr = eris.Wrap(err, "add analysis schema")
			return
		}
		schema, schemaErr = compiler.Compile("analysis.json")
		if schemaErr != nil {
			schemaErr = eris.Wrap(schemaErr, "compile analysis schema")
		}
	})
	return schema, schemaErr
}

// Analysis parses model output into an analysis group. Unparseable or
// mistyped output degrades.
func Analysis(text string) model.StageResult[model.AnalysisGroup] {
	a, err := ParseAnalysis(text)
	if err != nil {
		return model.Degraded[model.AnalysisGroup](err.Error())
	}
	return model.Ok(model.AnalysisGroup{Analysis: a, Complete: true})
}

// ParseAnalysis cleans, validates and decodes model output. Failures are
// *SchemaError.
func ParseAnalysis(text string) (*model.Analysis, error) {
	cleaned := CleanJSON(text)
	if cleaned == "" {
		return nil, &SchemaError{Reason: "empty model output"}
	}

	v, err := analysisValidator()
	if err != nil {
		return nil, &SchemaError{Reason: "schema unavailable", Err: err}
	}

	var doc any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, &SchemaError{Reason: "invalid json", Err: err}
	}
	if err := v.Validate(doc); err != nil {
		return nil, &SchemaError{Reason: "unexpected shape", Err: err}
	}

	obj, _ := doc.(map[string]any)
	summary, _ := obj["summary"].(string)
	a := &model.Analysis{
		Summary:          strings.TrimSpace(summary),
		Prices:           stringList(obj["prices"]),
		DiscountedPrices: stringList(obj["discounted_prices"]),
		Niche:            optional(obj["niche"]),
		OtherContact:     optional(obj["other_contact"]),
	}
	return a, nil
}

// CleanJSON extracts the JSON object from model output that may be wrapped
// in code fences or prose.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}

func stringList(v any) []string {
	arr, _ := v.([]any)
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		var s string
		switch t := item.(type) {
		case string:
			s = strings.TrimSpace(t)
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func optional(v any) *string {
	s, _ := v.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
