package icu

import "math/rand"

const (
	DefaultTrendPoints = 20
	MaxTrendPoints     = 200
)

// Trend holds chart-only history series. The values are decorative; only the
// final point is real, and it always equals the snapshot.
type Trend struct {
	HeartRate []int `json:"heart_rate"`
	Oxygen    []int `json:"oxygen"`
	Glucose   []int `json:"glucose"`
	Movement  []int `json:"movement"`
}

// GenerateTrend walks each series randomly towards the snapshot. rng is the
// only source of randomness, so a seeded source gives reproducible charts.
func GenerateTrend(v VitalsSnapshot, points int, rng *rand.Rand) Trend {
	if points <= 0 {
		points = DefaultTrendPoints
	}
	if points > MaxTrendPoints {
		points = MaxTrendPoints
	}

	movement := 0
	if v.Movement {
		movement = 1
	}

	return Trend{
		HeartRate: walk(v.HeartRate, points, 6, 0, 220, rng),
		Oxygen:    walk(v.Oxygen, points, 2, 0, 100, rng),
		Glucose:   walk(v.Glucose, points, 8, 0, 600, rng),
		Movement:  flicker(movement, points, rng),
	}
}

// walk builds the series backwards from final so the last element is exact.
func walk(final, points, step, lo, hi int, rng *rand.Rand) []int {
	out := make([]int, points)
	cur := final
	for i := points - 1; i >= 0; i-- {
		out[i] = cur
		cur += rng.Intn(2*step+1) - step
		if cur < lo {
			cur = lo
		}
		if cur > hi {
			cur = hi
		}
	}
	return out
}

func flicker(final, points int, rng *rand.Rand) []int {
	out := make([]int, points)
	for i := 0; i < points-1; i++ {
		if rng.Intn(4) == 0 {
			out[i] = 1
		}
	}
	out[points-1] = final
	return out
}
