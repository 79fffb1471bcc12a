package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchJob_Progress(t *testing.T) {
	job := &BatchJob{}
	assert.Equal(t, float64(0), job.Progress())

	job.TotalRecords = 8
	job.ProcessedRecords = 2
	assert.Equal(t, float64(25), job.Progress())
}

func TestBatchJob_Metadata(t *testing.T) {
	job := &BatchJob{Metadata: map[string]interface{}{
		"steps":      float64(12),
		"limit":      3,
		"project_id": "abc",
	}}

	steps, ok := job.MetadataInt("steps")
	require.True(t, ok)
	assert.Equal(t, 12, steps)

	limit, ok := job.MetadataInt("limit")
	require.True(t, ok)
	assert.Equal(t, 3, limit)

	_, ok = job.MetadataInt("project_id")
	assert.False(t, ok)

	id, ok := job.MetadataString("project_id")
	require.True(t, ok)
	assert.Equal(t, "abc", id)
}

func TestProject_JSONColumns(t *testing.T) {
	p := &Project{}

	cells, err := p.CellsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(cells))

	p.Cells = map[string]string{"A1": "=1=A1+1"}
	cells, err = p.CellsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"A1":"=1=A1+1"}`, string(cells))

	series := &DataSeries{}
	values, err := series.ValuesJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(values))
}
