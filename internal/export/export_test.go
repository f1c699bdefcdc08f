package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-enricher/internal/model"
)

func testLeads() []model.Lead {
	er := 15.5
	niche := "yoga studio"
	return []model.Lead{
		{
			ID:       "lead-1",
			Username: "studio.lumen",
			Profile: model.ProfileGroup{HasProfile: true, Profile: &model.Profile{
				FullName: "Studio Lumen", ExternalURL: "https://lumen.example", FollowersCount: 1200, FollowsCount: 80, Verified: true,
			}},
			Reels:   model.ReelsGroup{Reels: []model.Reel{{URL: "a"}, {URL: "b"}}, EngagementRate: &er, HasReels: true},
			Website: model.WebsiteGroup{Primary: &model.Page{Title: "Lumen", Language: "fr-CA"}, HasWebsite: true},
			Analysis: model.AnalysisGroup{Complete: true, Analysis: &model.Analysis{
				Summary: "Yoga classes", Prices: []string{"45 €", "60 €"}, Niche: &niche,
			}},
			UpdatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
		{ID: "lead-2", Username: "bare"},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatXLSX, FormatFromPath("out/leads.XLSX"))
	assert.Equal(t, FormatCSV, FormatFromPath("leads.csv"))
	assert.Equal(t, FormatCSV, FormatFromPath("-"))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, testLeads()))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, Columns, recs[0])

	full := recs[1]
	assert.Equal(t, "studio.lumen", full[1])
	assert.Equal(t, "1200", full[3])
	assert.Equal(t, "true", full[5])
	assert.Equal(t, "15.5", full[7])
	assert.Equal(t, "2", full[8])
	assert.Equal(t, "fr-CA", full[10])
	assert.Equal(t, "45 €; 60 €", full[13])
	assert.Equal(t, "2026-03-02T10:00:00Z", full[16])

	bare := recs[2]
	assert.Equal(t, "bare", bare[1])
	assert.Equal(t, "0", bare[3])
	assert.Equal(t, "", bare[7])
	assert.Equal(t, "", bare[16])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, testLeads()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	sheet, ok := f.Sheet[SheetName]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "username", sheet.Rows[0].Cells[1].String())
	assert.Equal(t, "studio.lumen", sheet.Rows[1].Cells[1].String())

	followers, err := sheet.Rows[1].Cells[3].Int()
	require.NoError(t, err)
	assert.Equal(t, 1200, followers)

	er, err := sheet.Rows[1].Cells[7].Float()
	require.NoError(t, err)
	assert.InDelta(t, 15.5, er, 1e-9)
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Format("pdf"), nil))
}
