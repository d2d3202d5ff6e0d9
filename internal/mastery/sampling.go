package mastery

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/abhisek/lexiz/internal/store"
)

// WeightedTopic is one entry of a weak-topic selection.
type WeightedTopic struct {
	Topic   store.GrammarTopic
	Mastery int
	// Weight is the unnormalized selection weight.
	Weight float64
	// Probability is Weight over the total weight of all candidates,
	// i.e. the chance this topic would be drawn first.
	Probability float64
}

// Weight returns the selection weight of a topic with the given mastery.
// Lower mastery weighs more; FloorWeight keeps the minimum above zero.
func Weight(mastery int, cfg Config) float64 {
	return float64(cfg.MaxScore-clamp(mastery, 0, cfg.MaxScore)) + cfg.FloorWeight
}

// sampleWeighted draws up to k candidates without replacement, each draw
// proportional to weight among those remaining. It uses the
// Efraimidis-Spirakis key log(u)/w and keeps the k largest keys.
func sampleWeighted(candidates []WeightedTopic, k int, rng *rand.Rand) []WeightedTopic {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	type keyed struct {
		key float64
		wt  WeightedTopic
	}
	keys := make([]keyed, len(candidates))
	for i, c := range candidates {
		u := 1 - rng.Float64() // (0, 1]
		keys[i] = keyed{key: math.Log(u) / c.Weight, wt: c}
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].key > keys[j].key })

	if k > len(keys) {
		k = len(keys)
	}
	out := make([]WeightedTopic, k)
	for i := range out {
		out[i] = keys[i].wt
	}
	return out
}
