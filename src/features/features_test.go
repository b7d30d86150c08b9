package features

import (
	"io/ioutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xb10c/feebuckets/src/test"
)

func TestValidateBlockTarget(t *testing.T) {
	assert.Error(t, ValidateBlockTarget(0))
	assert.NoError(t, ValidateBlockTarget(1))
	assert.NoError(t, ValidateBlockTarget(1008))
	assert.Error(t, ValidateBlockTarget(1009))
}

func TestTargets(t *testing.T) {
	assert.Equal(t, []uint16{1, 2, 3, 6, 36, 72, 144, 432, 1008}, Targets(2))
	assert.Equal(t, BlockTargets, Targets(6))
}

func TestNewInputs(t *testing.T) {
	// Wednesday 2020-09-16 12:26:40 UTC
	now := time.Unix(1600259200, 0)
	last := now.Add(-90 * time.Second)

	inputs, err := NewInputs(now, last, []uint64{4, 0, 7}, []string{"b0", "b1", "b2"})
	require.NoError(t, err)
	assert.Equal(t, Inputs{
		FieldDayOfWeek: 2,
		FieldHour:      12,
		FieldDeltaLast: 90,
		"b0":           4,
		"b1":           0,
		"b2":           7,
	}, inputs)

	_, err = NewInputs(now, last, []uint64{1}, []string{"b0", "b1"})
	assert.Error(t, err)
}

func TestNewInputs_Monday(t *testing.T) {
	monday := time.Date(2020, 9, 14, 3, 0, 0, 0, time.UTC)
	inputs, err := NewInputs(monday, monday, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, float32(0), inputs[FieldDayOfWeek])

	sunday := time.Date(2020, 9, 20, 3, 0, 0, 0, time.UTC)
	inputs, err = NewInputs(sunday, sunday, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, float32(6), inputs[FieldDayOfWeek])
}

const describeJSON = `{
	"mean": {"b0": 10, "hour": 12, "confirms_in": 6},
	"std": {"b0": 5, "hour": 6, "confirms_in": 2},
	"fields": ["b0", "hour", "confirms_in"]
}`

func TestFieldsDescribe(t *testing.T) {
	path := test.TempFile(t, FieldsDescribeFile)
	require.NoError(t, ioutil.WriteFile(path, []byte(describeJSON), 0644))

	d, err := LoadFieldsDescribe(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"b0", "hour", "confirms_in"}, d.Fields)

	res, err := d.Normalize(Inputs{"b0": 20, FieldHour: 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, -2, 2}, res)

	_, err = d.Normalize(Inputs{FieldHour: 0}, 10)
	assert.Error(t, err)
}

func TestFieldsDescribe_Invalid(t *testing.T) {
	_, err := LoadFieldsDescribe(test.TempFile(t, "missing.json"))
	assert.Error(t, err)

	path := test.TempFile(t, FieldsDescribeFile)
	require.NoError(t, ioutil.WriteFile(path, []byte(`{"fields": []}`), 0644))
	_, err = LoadFieldsDescribe(path)
	assert.Error(t, err)

	d := &FieldsDescribe{
		Mean:   map[string]float32{"b0": 1},
		Std:    map[string]float32{"b0": 0},
		Fields: []string{"b0"},
	}
	_, err = d.Normalize(Inputs{"b0": 1}, 1)
	assert.Error(t, err)
}
