// Package features turns a fee-rate histogram into the normalized input
// vector of the fee prediction model.
package features

import (
	"encoding/json"
	"io/ioutil"
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
)

const (
	FieldDayOfWeek  = "day_of_week"
	FieldHour       = "hour"
	FieldDeltaLast  = "delta_last"
	FieldConfirmsIn = "confirms_in"

	// MinBlockTarget and MaxBlockTarget bound the number of blocks a caller
	// may ask an estimate for.
	MinBlockTarget = 1
	MaxBlockTarget = 1008

	// FieldsDescribeFile is the file name of the normalization parameters
	// inside a model directory.
	FieldsDescribeFile = "mean-std.json"
)

// BlockTargets are the confirmation targets estimated by default.
var BlockTargets = []uint16{1, 3, 6, 36, 72, 144, 432, 1008}

// ValidateBlockTarget checks that target is within [1, 1008].
func ValidateBlockTarget(target uint16) error {
	if target < MinBlockTarget || target > MaxBlockTarget {
		return errors.Errorf(
			"block target %d must be between %d and %d", target, MinBlockTarget, MaxBlockTarget,
		)
	}
	return nil
}

// Targets returns BlockTargets plus extra, sorted and without duplicates.
func Targets(extra uint16) []uint16 {
	seen := map[uint16]struct{}{}
	res := []uint16{}
	for _, t := range append(append([]uint16{}, BlockTargets...), extra) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// Inputs maps a model field name to its raw value.
type Inputs map[string]float32

// NewInputs builds the raw model inputs: the weekday (Monday is 0) and hour
// of now in UTC, the seconds since lastBlockTime, and one entry per bucket
// named by names.
func NewInputs(now, lastBlockTime time.Time, counts []uint64, names []string) (Inputs, error) {
	if len(counts) != len(names) {
		return nil, errors.Errorf("%d bucket counts but %d names", len(counts), len(names))
	}
	utc := now.UTC()
	inputs := Inputs{
		FieldDayOfWeek: float32((int(utc.Weekday()) + 6) % 7),
		FieldHour:      float32(utc.Hour()),
		FieldDeltaLast: float32(now.Sub(lastBlockTime) / time.Second),
	}
	for i, name := range names {
		inputs[name] = float32(counts[i])
	}
	return inputs, nil
}

// FieldsDescribe holds the per-field mean and standard deviation the model
// was trained with, and the order of its input fields.
type FieldsDescribe struct {
	Mean   map[string]float32 `json:"mean"`
	Std    map[string]float32 `json:"std"`
	Fields []string           `json:"fields"`
}

// LoadFieldsDescribe reads a mean-std.json file.
func LoadFieldsDescribe(path string) (*FieldsDescribe, error) {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read %s", path)
	}
	var d FieldsDescribe
	if err := json.Unmarshal(buf, &d); err != nil {
		return nil, errors.Wrapf(err, "could not decode %s", path)
	}
	if len(d.Fields) == 0 {
		return nil, errors.Errorf("%s lists no fields", path)
	}
	return &d, nil
}

// Normalize returns (x - mean) / std for every field in order, with
// confirms_in set to blockTarget.
func (d *FieldsDescribe) Normalize(inputs Inputs, blockTarget uint16) ([]float32, error) {
	res := make([]float32, 0, len(d.Fields))
	for _, field := range d.Fields {
		var x float32
		if field == FieldConfirmsIn {
			x = float32(blockTarget)
		} else {
			v, ok := inputs[field]
			if !ok {
				return nil, errors.Errorf("missing input %q", field)
			}
			x = v
		}
		mean, ok := d.Mean[field]
		if !ok {
			return nil, errors.Errorf("missing mean for %q", field)
		}
		std, ok := d.Std[field]
		if !ok || std == 0 || math.IsNaN(float64(std)) {
			return nil, errors.Errorf("missing or zero std for %q", field)
		}
		res = append(res, (x-mean)/std)
	}
	return res, nil
}
