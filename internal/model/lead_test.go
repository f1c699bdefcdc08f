package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"studio.lumen", "studio.lumen"},
		{"@Studio.Lumen", "studio.lumen"},
		{"  @BAKERY_nord  ", "bakery_nord"},
		{"", ""},
		{"@", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeUsername(tt.in), "input %q", tt.in)
	}
}

func TestAnalysis_Empty(t *testing.T) {
	var nilAnalysis *Analysis
	assert.True(t, nilAnalysis.Empty())
	assert.True(t, (&Analysis{}).Empty())

	blank := ""
	assert.True(t, (&Analysis{Niche: &blank, OtherContact: &blank}).Empty())

	niche := "yoga"
	assert.False(t, (&Analysis{Niche: &niche}).Empty())
	assert.False(t, (&Analysis{Summary: "Yoga studio"}).Empty())
	assert.False(t, (&Analysis{Prices: []string{"45"}}).Empty())
	assert.False(t, (&Analysis{DiscountedPrices: []string{"30"}}).Empty())
}

func TestNeutralGroups(t *testing.T) {
	p := NeutralProfile()
	assert.Nil(t, p.Profile)
	assert.False(t, p.HasProfile)

	r := NeutralReels()
	assert.NotNil(t, r.Reels)
	assert.Empty(t, r.Reels)
	assert.Nil(t, r.EngagementRate)
	assert.False(t, r.HasReels)

	w := NeutralWebsite()
	assert.NotNil(t, w.Pages)
	assert.Nil(t, w.Primary)
	assert.False(t, w.HasWebsite)

	a := NeutralAnalysis()
	assert.Nil(t, a.Analysis)
	assert.False(t, a.Complete)
}

func TestNeutralReels_EncodesEmptyList(t *testing.T) {
	data, err := json.Marshal(NeutralReels())
	require.NoError(t, err)
	assert.JSONEq(t, `{"reels":[],"er_avg":null,"has_reels":false}`, string(data))
}
