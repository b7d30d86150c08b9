// Package buckets builds exponentially spaced fee-rate bucket boundaries and
// classifies fee rates into them.
package buckets

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"
)

const (
	// DefaultIncrementPercent is the default growth between two consecutive
	// boundaries.
	DefaultIncrementPercent uint32 = 50

	// DefaultUpperLimit is the default fee rate in sat/vbyte at which the
	// boundary list ends.
	DefaultUpperLimit float64 = 500.0

	// MaxBoundaries is an upper bound on the number of boundaries a
	// configuration may produce.
	MaxBoundaries = 2000
)

// ErrInvalidBucketConfig is returned for an increment percent or upper limit
// that cannot produce a finite boundary list.
var ErrInvalidBucketConfig = errors.New("invalid bucket config")

// Boundaries is an immutable, strictly increasing list of fee-rate
// thresholds. The first value is above 1.0 and the last one is the first to
// reach the configured upper limit.
type Boundaries struct {
	limits []float64
}

// BuildBoundaries starts at 1.0 and multiplies by 1 + incrementPercent/100,
// appending every product, until the upper limit is reached. The product that
// reaches the limit is the last boundary.
func BuildBoundaries(incrementPercent uint32, upperLimit float64) (*Boundaries, error) {
	if incrementPercent == 0 {
		return nil, errors.Wrap(ErrInvalidBucketConfig, "increment percent must be positive")
	}
	if !(upperLimit > 0) || math.IsInf(upperLimit, 1) {
		return nil, errors.Wrapf(ErrInvalidBucketConfig, "upper limit %v must be positive and finite", upperLimit)
	}

	multiplier := 1.0 + float64(incrementPercent)/100.0
	// ceil(log(upperLimit) / log(multiplier)) boundaries, plus one for rounding
	if expected := math.Log(upperLimit) / math.Log(multiplier); expected > MaxBoundaries {
		return nil, errors.Wrapf(
			ErrInvalidBucketConfig,
			"increment %d%% up to %v needs more than %d boundaries",
			incrementPercent, upperLimit, MaxBoundaries,
		)
	}

	var limits []float64
	value := 1.0
	for {
		value *= multiplier
		limits = append(limits, value)
		if value >= upperLimit {
			break
		}
	}
	return &Boundaries{limits: limits}, nil
}

// MustBuildBoundaries is like BuildBoundaries but panics on error.
func MustBuildBoundaries(incrementPercent uint32, upperLimit float64) *Boundaries {
	b, err := BuildBoundaries(incrementPercent, upperLimit)
	if err != nil {
		panic(err)
	}
	return b
}

// Len returns the number of boundaries, which is also the histogram length.
func (b *Boundaries) Len() int {
	return len(b.limits)
}

// At returns boundary i.
func (b *Boundaries) At(i int) float64 {
	return b.limits[i]
}

// Values returns a copy of the boundaries.
func (b *Boundaries) Values() []float64 {
	res := make([]float64, len(b.limits))
	copy(res, b.limits)
	return res
}

// Classify returns the index of the first boundary strictly greater than
// rate. Rates at or above the last boundary fall into the last index.
func (b *Boundaries) Classify(rate float64) int {
	i := sort.Search(len(b.limits), func(i int) bool {
		return b.limits[i] > rate
	})
	if i == len(b.limits) {
		return len(b.limits) - 1
	}
	return i
}

// Classify is the function form of (*Boundaries).Classify.
func Classify(rate float64, b *Boundaries) int {
	return b.Classify(rate)
}

// NewHistogram returns a zeroed count slice of the right length.
func (b *Boundaries) NewHistogram() []uint64 {
	return make([]uint64, len(b.limits))
}

// FeatureNames returns the model input name of each bucket, `<prefix><i>`.
func (b *Boundaries) FeatureNames(prefix string) []string {
	names := make([]string, len(b.limits))
	for i := range b.limits {
		names[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return names
}
