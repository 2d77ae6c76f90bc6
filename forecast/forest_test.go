package forecast

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resortSplit scans every feature after sorting the rows again, the plain way.
func resortSplit(b *builder, idx []int) (feature int, threshold float64, ok bool) {
	n := len(idx)
	total, totalSq := 0.0, 0.0
	for _, i := range idx {
		total += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	parentSSE := totalSq - total*total/float64(n)
	if parentSSE <= 1e-12 {
		return 0, 0, false
	}
	bestGain := 1e-12
	for f := 0; f < len(b.x[0]); f++ {
		sorted := append([]int(nil), idx...)
		sort.SliceStable(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })
		leftSum, leftSq := 0.0, 0.0
		for k := 0; k < n-1; k++ {
			v := b.y[sorted[k]]
			leftSum += v
			leftSq += v * v
			nl, nr := k+1, n-k-1
			cur, next := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if cur == next || nl < b.p.minSamplesLeaf || nr < b.p.minSamplesLeaf {
				continue
			}
			rs, rq := total-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rq - rs*rs/float64(nr))
			if gain := parentSSE - sse; gain > bestGain {
				bestGain, feature, threshold, ok = gain, f, (cur+next)/2, true
			}
		}
	}
	return feature, threshold, ok
}

// dailyRows mimics the forecaster's features: weekday, month, day and two one-hot regions.
func dailyRows(n int, rng *rand.Rand) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		wd, month, day, region := float64(i%7), float64(1+(i/30)%12), float64(1+i%28), i%2
		x[i] = []float64{wd, month, day, float64(1 - region), float64(region)}
		y[i] = 10 + float64(rng.Intn(5))
		if wd >= 5 {
			y[i] += 20
		}
		if region == 1 {
			y[i] += 5
		}
	}
	return x, y
}

func TestPresortedSplitMatchesResorting(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	x, y := dailyRows(200, rng)
	b := &builder{x: x, y: y, p: forestParams{minSamplesLeaf: 1}, scratch: make([]int, 0, len(y))}

	sample := make([]int, len(y))
	for i := range sample {
		sample[i] = rng.Intn(len(y))
	}
	orders := make([][]int, len(x[0]))
	for f := range orders {
		o := append([]int(nil), sample...)
		sort.SliceStable(o, func(a, c int) bool { return x[o[a]][f] < x[o[c]][f] })
		orders[f] = o
	}

	// Walk the tree along the right-hand spine, checking every node against a fresh sort.
	for depth := 0; depth < 6; depth++ {
		wantF, wantT, wantOK := resortSplit(b, orders[0])
		gotF, gotT, gotOK := b.bestSplit(orders)
		require.Equal(t, wantOK, gotOK, "depth %d", depth)
		if !gotOK {
			break
		}
		assert.Equal(t, wantF, gotF, "depth %d", depth)
		assert.Equal(t, wantT, gotT, "depth %d", depth)

		for f, o := range orders {
			k := b.partition(o, gotF, gotT)
			for _, r := range o[:k] {
				assert.LessOrEqual(t, x[r][gotF], gotT)
			}
			for _, r := range o[k:] {
				assert.Greater(t, x[r][gotF], gotT)
			}
			assert.True(t, sort.SliceIsSorted(o[k:], func(a, c int) bool { return x[o[k+a]][f] < x[o[k+c]][f] }))
			orders[f] = o[k:]
		}
	}
}

func TestFitForestOnFiveYearsOfDailyRows(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	x, y := dailyRows(1825, rng)
	f := fitForest(x, y, forestParams{trees: 20, minSamplesLeaf: 1}, rand.New(rand.NewSource(42)))
	require.Len(t, f.trees, 20)

	weekday := f.predict([]float64{2, 6, 14, 1, 0})
	weekend := f.predict([]float64{6, 6, 14, 0, 1})
	assert.InDelta(t, 12, weekday, 3)
	assert.InDelta(t, 37, weekend, 3)
}

func TestFitForestWithoutFeatures(t *testing.T) {
	x := [][]float64{{}, {}, {}}
	f := fitForest(x, []float64{2, 2, 2}, forestParams{trees: 3, minSamplesLeaf: 1}, rand.New(rand.NewSource(1)))
	require.Len(t, f.trees, 3)
	assert.Equal(t, 2.0, f.predict(nil))
}
