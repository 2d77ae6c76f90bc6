package forecast

import (
	"math"
	"math/rand"
	"sort"
)

// forestParams configures a random forest regressor.
type forestParams struct {
	trees          int
	maxDepth       int // 0 means unlimited
	minSamplesLeaf int
}

type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
	leaf      bool
}

// tree is a fitted regression tree stored as a flat node slice; nodes[0] is the root.
type tree struct {
	nodes []node
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.nodes[i]
		if n.leaf {
			return n.value
		}
		if x[n.feature] <= n.threshold {
			i = n.left
		} else {
			i = n.right
		}
	}
}

// forest averages bootstrap-trained regression trees.
type forest struct {
	trees []tree
}

func (f *forest) predict(x []float64) float64 {
	if len(f.trees) == 0 {
		return 0
	}
	sum := 0.0
	for i := range f.trees {
		sum += f.trees[i].predict(x)
	}
	return sum / float64(len(f.trees))
}

// fitForest trains p.trees trees on bootstrap samples of (x, y) drawn from rng.
// Rows are sorted by every feature once; each tree expands that order by its
// bootstrap counts, and splits partition the per-feature orders stably, so no
// node sorts again.
func fitForest(x [][]float64, y []float64, p forestParams, rng *rand.Rand) *forest {
	f := &forest{trees: make([]tree, 0, p.trees)}
	n := len(y)
	if n == 0 {
		return f
	}
	features := len(x[0])
	byFeature := make([][]int, features)
	for ft := range byFeature {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		sort.SliceStable(rows, func(a, c int) bool { return x[rows[a]][ft] < x[rows[c]][ft] })
		byFeature[ft] = rows
	}

	counts := make([]int, n)
	for t := 0; t < p.trees; t++ {
		clear(counts)
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
			counts[sample[i]]++
		}
		b := &builder{x: x, y: y, p: p, scratch: make([]int, 0, n)}
		if features == 0 {
			b.nodes = append(b.nodes, node{leaf: true, value: b.mean(sample)})
			f.trees = append(f.trees, tree{nodes: b.nodes})
			continue
		}
		orders := make([][]int, features)
		for ft, rows := range byFeature {
			o := make([]int, 0, n)
			for _, r := range rows {
				for c := counts[r]; c > 0; c-- {
					o = append(o, r)
				}
			}
			orders[ft] = o
		}
		b.grow(orders, 0)
		f.trees = append(f.trees, tree{nodes: b.nodes})
	}
	return f
}

type builder struct {
	x       [][]float64
	y       []float64
	p       forestParams
	nodes   []node
	scratch []int
}

func (b *builder) mean(idx []int) float64 {
	s := 0.0
	for _, i := range idx {
		s += b.y[i]
	}
	return s / float64(len(idx))
}

// grow appends the subtree for one node and returns its node index.
// orders[f] holds the node's bootstrap rows sorted by feature f; all of them
// carry the same rows.
func (b *builder) grow(orders [][]int, depth int) int {
	idx := orders[0]
	at := len(b.nodes)
	b.nodes = append(b.nodes, node{leaf: true, value: b.mean(idx)})

	if b.p.maxDepth > 0 && depth >= b.p.maxDepth {
		return at
	}
	if len(idx) < 2*b.p.minSamplesLeaf {
		return at
	}
	feature, threshold, ok := b.bestSplit(orders)
	if !ok {
		return at
	}

	left := make([][]int, len(orders))
	right := make([][]int, len(orders))
	for f, o := range orders {
		k := b.partition(o, feature, threshold)
		left[f], right[f] = o[:k], o[k:]
	}
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[at] = node{feature: feature, threshold: threshold, left: l, right: r}
	return at
}

// partition moves the rows of o that go left to its front, keeping the order
// on both sides, and returns how many went left.
func (b *builder) partition(o []int, feature int, threshold float64) int {
	rest := b.scratch[:0]
	k := 0
	for _, r := range o {
		if b.x[r][feature] <= threshold {
			o[k] = r
			k++
		} else {
			rest = append(rest, r)
		}
	}
	copy(o[k:], rest)
	return k
}

// bestSplit finds the split with the largest reduction of the squared error sum.
// Features are scanned in order and the first best split wins, so fitting is deterministic.
func (b *builder) bestSplit(orders [][]int) (feature int, threshold float64, ok bool) {
	idx := orders[0]
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
	for f, sorted := range orders {
		leftSum, leftSq := 0.0, 0.0
		for k := 0; k < n-1; k++ {
			v := b.y[sorted[k]]
			leftSum += v
			leftSq += v * v
			nl := k + 1
			nr := n - nl
			cur, next := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if cur == next || nl < b.p.minSamplesLeaf || nr < b.p.minSamplesLeaf {
				continue
			}
			rightSum, rightSq := total-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if gain := parentSSE - sse; gain > bestGain {
				bestGain = gain
				feature = f
				threshold = (cur + next) / 2
				ok = true
			}
		}
	}
	return feature, threshold, ok
}

// trainTestSplit shuffles 0..n-1 with rng and holds out ceil(n*testFrac) rows.
// With fewer than two rows nothing is held out.
func trainTestSplit(n int, testFrac float64, rng *rand.Rand) (train, test []int) {
	perm := rng.Perm(n)
	if n < 2 {
		return perm, nil
	}
	k := int(math.Ceil(float64(n)*testFrac - 1e-9))
	if k >= n {
		k = n - 1
	}
	return perm[k:], perm[:k]
}
