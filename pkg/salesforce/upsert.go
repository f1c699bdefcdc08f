package salesforce

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

var apiName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

type idRecord struct {
	ID string `json:"Id" salesforce:"Id"`
}

// FindIDByField returns the ID of the first sObject whose field equals
// value, or "" when none matches.
func FindIDByField(ctx context.Context, c Client, sObject, field, value string) (string, error) {
	if !apiName.MatchString(sObject) || !apiName.MatchString(field) {
		return "", eris.Errorf("sf: invalid api name %s.%s", sObject, field)
	}
	soql := fmt.Sprintf("SELECT Id FROM %s WHERE %s = '%s' LIMIT 1", sObject, field, escapeSoql(value))

	var recs []idRecord
	if err := c.Query(ctx, soql, &recs); err != nil {
		return "", eris.Wrapf(err, "sf: find %s by %s", sObject, field)
	}
	if len(recs) == 0 {
		return "", nil
	}
	return recs[0].ID, nil
}

// Upsert updates the record matching field=value or inserts a new one.
// The key field is always written so later lookups find the record.
func Upsert(ctx context.Context, c Client, sObject, field, value string, fields map[string]any) (id string, created bool, err error) {
	if value == "" {
		return "", false, eris.Errorf("sf: empty %s", field)
	}
	id, err = FindIDByField(ctx, c, sObject, field, value)
	if err != nil {
		return "", false, err
	}

	rec := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		rec[k] = v
	}
	rec[field] = value

	if id != "" {
		if err := c.UpdateOne(ctx, sObject, id, rec); err != nil {
			return "", false, err
		}
		return id, false, nil
	}
	id, err = c.InsertOne(ctx, sObject, rec)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func escapeSoql(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", `\'`)
}
