// Package extract maps raw provider records onto the lead's normalized
// field groups. Extractors are total: every read has a fallback and no
// input makes them fail; unusable input yields a Degraded result.
package extract

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/lead-enricher/internal/job"
)

// SchemaError reports model output that could not be mapped onto the
// analysis shape.
type SchemaError struct {
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema: %s: %v", e.Reason, e.Err)
	}
	return "schema: " + e.Reason
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// usable drops records that carry a provider error marker, e.g. the
// {"error": "not_found"} item scrapers emit for missing accounts.
func usable(recs []job.Record) (ok []job.Record, providerErr string) {
	for _, r := range recs {
		if r.Has("error") {
			if providerErr == "" {
				providerErr = r.FirstString("errorDescription", "error")
			}
			continue
		}
		ok = append(ok, r)
	}
	return ok, providerErr
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
