// Package export writes stored leads as CSV or XLSX for spreadsheet handoff.
package export

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-enricher/internal/model"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet XLSX exports write to.
const SheetName = "Leads"

// Columns is the header row shared by every format.
var Columns = []string{
	"id", "username", "full_name", "followers", "following", "verified",
	"external_url", "er_avg", "reels", "website_title", "website_language",
	"summary", "niche", "prices", "discounted_prices", "other_contact", "updated_at",
}

// ParseFormat accepts "csv" or "xlsx" case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", eris.Errorf("export: unsupported format %q (want csv or xlsx)", s)
}

// FormatFromPath infers the format from a file extension, defaulting to CSV.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// Write encodes leads to w in the given format.
func Write(w io.Writer, format Format, leads []model.Lead) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, leads)
	case FormatXLSX:
		return WriteXLSX(w, leads)
	}
	return eris.Errorf("export: unsupported format %q", format)
}

// WriteCSV writes a header row followed by one row per lead.
func WriteCSV(w io.Writer, leads []model.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for i := range leads {
		cells := row(&leads[i])
		rec := make([]string, len(cells))
		for j, c := range cells {
			rec[j] = c.text()
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrapf(err, "csv: write lead %s", leads[i].ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

// WriteXLSX writes a single-sheet workbook with typed numeric cells.
func WriteXLSX(w io.Writer, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range Columns {
		header.AddCell().SetString(name)
	}
	for i := range leads {
		r := sheet.AddRow()
		for _, c := range row(&leads[i]) {
			c.set(r.AddCell())
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}

// cell is one exported value; numbers stay numeric in XLSX.
type cell struct {
	s     string
	n     *float64
	i     *int64
	empty bool
}

func str(s string) cell { return cell{s: s} }

func integer(v int64) cell { return cell{i: &v} }

func number(v *float64) cell {
	if v == nil {
		return cell{empty: true}
	}
	return cell{n: v}
}

func (c cell) text() string {
	switch {
	case c.empty:
		return ""
	case c.i != nil:
		return strconv.FormatInt(*c.i, 10)
	case c.n != nil:
		return strconv.FormatFloat(*c.n, 'f', -1, 64)
	}
	return c.s
}

func (c cell) set(xc *xlsx.Cell) {
	switch {
	case c.empty:
	case c.i != nil:
		xc.SetInt64(*c.i)
	case c.n != nil:
		xc.SetFloat(*c.n)
	default:
		xc.SetString(c.s)
	}
}

func row(l *model.Lead) []cell {
	var (
		fullName, externalURL, verified string
		followers, following            int64
	)
	if p := l.Profile.Profile; p != nil {
		fullName = p.FullName
		externalURL = p.ExternalURL
		followers = p.FollowersCount
		following = p.FollowsCount
		verified = strconv.FormatBool(p.Verified)
	}

	var title, lang string
	if pg := l.Website.Primary; pg != nil {
		title = pg.Title
		lang = pg.Language
	}

	var summary, niche, prices, discounted, contact string
	if a := l.Analysis.Analysis; a != nil {
		summary = a.Summary
		niche = deref(a.Niche)
		prices = strings.Join(a.Prices, "; ")
		discounted = strings.Join(a.DiscountedPrices, "; ")
		contact = deref(a.OtherContact)
	}

	updated := ""
	if !l.UpdatedAt.IsZero() {
		updated = l.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	return []cell{
		str(l.ID), str(l.Username), str(fullName), integer(followers), integer(following), str(verified),
		str(externalURL), number(l.Reels.EngagementRate), integer(int64(len(l.Reels.Reels))), str(title), str(lang),
		str(summary), str(niche), str(prices), str(discounted), str(contact), str(updated),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
