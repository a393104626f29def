package cfg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *Record {
	return &Record{
		Requirements: NewSection("code", "lammps", "version", "stable"),
		Runtime:      NewSection("nodes", "1,2", "threads", "4,8", "ranks_per_node", "2,1"),
		Config:       NewSection("label", "", "dataset", "lj.in"),
		Result:       NewSection("method", "expr", "unit", "s"),
		Metadata:     NewSection("cfg_label", "lammps"),
	}
}

func TestRecord_Section(t *testing.T) {
	r := testRecord()
	for _, name := range SectionNames {
		assert.NotNil(t, r.Section(name), name)
	}
	assert.Nil(t, r.Section("bogus"))

	r.Section(SectionRuntime).Set("gpus", "1")
	assert.Equal(t, "1", r.Runtime.Value("gpus"))
}

func TestRecord_SnapshotIsolation(t *testing.T) {
	r := testRecord()
	snap := r.Snapshot()
	snap.Runtime.Set("nodes", "64")
	snap.Metadata.Set("working_dir", "x")

	assert.Equal(t, "1,2", r.Runtime.Value("nodes"))
	assert.False(t, r.Metadata.Has("working_dir"))

	r.Config.Set("dataset", "other")
	assert.Equal(t, "lj.in", snap.Config.Value("dataset"))
}

func TestRecord_Flatten(t *testing.T) {
	r := testRecord()
	r.Metadata.Set("code", "override")

	flat := r.Flatten()
	assert.Equal(t, "override", flat["code"])
	assert.Equal(t, "lj.in", flat["dataset"])
}

func TestRecord_RuntimeView(t *testing.T) {
	r := testRecord()
	r.Runtime.Set("max_running_jobs", "3")

	view, err := r.RuntimeView()
	require.NoError(t, err)
	expected := RuntimeConfig{
		Nodes:          []string{"1", "2"},
		Threads:        []string{"4", "8"},
		RanksPerNode:   []string{"2", "1"},
		MaxRunningJobs: "3",
	}
	if diff := cmp.Diff(expected, view); diff != "" {
		t.Errorf("unexpected runtime view (-want +got):\n%s", diff)
	}
}

func TestRecord_OtherViews(t *testing.T) {
	r := testRecord()

	req, err := r.RequirementsView()
	require.NoError(t, err)
	assert.Equal(t, "lammps", req.Code)

	res, err := r.ResultView()
	require.NoError(t, err)
	assert.Equal(t, ResultConfig{Method: "expr", Unit: "s"}, res)

	conf, err := r.ConfigView()
	require.NoError(t, err)
	assert.Equal(t, "lj.in", conf.Dataset)

	meta, err := r.MetadataView()
	require.NoError(t, err)
	assert.Equal(t, "lammps", meta.CfgLabel)
}
