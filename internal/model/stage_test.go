package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageName_Valid(t *testing.T) {
	for _, s := range Stages {
		assert.True(t, s.Valid(), "stage %s", s)
	}
	assert.False(t, StageName("").Valid())
	assert.False(t, StageName("tiktok").Valid())
}

func TestStageResult(t *testing.T) {
	ok := Ok(ReelsGroup{HasReels: true})
	assert.False(t, ok.Degraded)
	assert.Empty(t, ok.Reason)
	assert.True(t, ok.Value.HasReels)

	deg := Degraded[ReelsGroup]("no reels")
	assert.True(t, deg.Degraded)
	assert.Equal(t, "no reels", deg.Reason)
	assert.False(t, deg.Value.HasReels)
}

func TestRunReport_Stage(t *testing.T) {
	r := &RunReport{Stages: []StageReport{
		{Stage: StageProfile, Status: StageStatusOK},
		{Stage: StageWebsite, Status: StageStatusDegraded, Reason: "no external url"},
	}}

	got, ok := r.Stage(StageWebsite)
	assert.True(t, ok)
	assert.Equal(t, "no external url", got.Reason)

	_, ok = r.Stage(StageSummary)
	assert.False(t, ok)
}

func TestRunReport_Degraded(t *testing.T) {
	r := &RunReport{Stages: []StageReport{
		{Stage: StageProfile, Status: StageStatusOK},
		{Stage: StageReels, Status: StageStatusDegraded},
		{Stage: StageWebsite, Status: StageStatusCached},
		{Stage: StageSummary, Status: StageStatusDegraded},
	}}
	assert.Equal(t, []StageName{StageReels, StageSummary}, r.Degraded())
	assert.Nil(t, (&RunReport{}).Degraded())
}
