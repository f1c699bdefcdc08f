package batch

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/pkg/notion"
)

var handleHeaders = map[string]bool{"username": true, "instagram": true, "handle": true, "ig": true}

// ReadHandles extracts unique handles from CSV. A header named username,
// instagram, handle or ig selects the column, otherwise column 0 is read.
// Values that are not valid handles are skipped.
func ReadHandles(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "batch: read csv")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	col := 0
	start := 0
	for i, h := range rows[0] {
		if handleHeaders[strings.ToLower(strings.TrimSpace(h))] {
			col, start = i, 1
			break
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, row := range rows[start:] {
		if col >= len(row) {
			continue
		}
		h := ParseHandle(row[col])
		if h == "" || seen[h] || !validHandle(h) {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	return out, nil
}

func validHandle(h string) bool {
	if len(h) > 30 {
		return false
	}
	for _, r := range h {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '.' || r == '_') {
			return false
		}
	}
	return true
}

// Import queues handles as new rows of the Notion lead database.
func Import(ctx context.Context, nc notion.Client, dbID string, handles []string) (int, error) {
	n, err := notion.CreateRows(ctx, nc, dbID, PropName, handles, notionapi.Properties{
		PropStatus: notion.Status(StatusQueued),
	})
	if err != nil {
		return n, eris.Wrap(err, "batch: import")
	}
	return n, nil
}
