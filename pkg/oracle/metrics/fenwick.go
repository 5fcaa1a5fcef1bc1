// Package metrics derives the per-run quantitative scores (reordering
// degree, fence satisfaction, reset completion, latency families and the
// tail budget) from a completed trace.RunState.
package metrics

// Fenwick is a binary indexed tree over the dense index space [0, n),
// supporting point increments and prefix counts in O(log n). It backs the
// inversion count behind the reordering degree but stands alone.
type Fenwick struct {
	n   int
	bit []int
}

// NewFenwick returns a tree over indices 0..n-1.
func NewFenwick(n int) *Fenwick {
	return &Fenwick{n: n, bit: make([]int, n+1)}
}

// Add increments position i by delta.
func (f *Fenwick) Add(i, delta int) {
	for i++; i <= f.n; i += i & -i {
		f.bit[i] += delta
	}
}

// Sum returns the prefix total over [0, i]. A negative i yields 0.
func (f *Fenwick) Sum(i int) int {
	s := 0
	for i++; i > 0; i -= i & -i {
		s += f.bit[i]
	}
	return s
}

// RangeSum returns the total over [l, r], 0 when r < l.
func (f *Fenwick) RangeSum(l, r int) int {
	if r < l {
		return 0
	}
	if l <= 0 {
		return f.Sum(r)
	}
	return f.Sum(r) - f.Sum(l-1)
}
