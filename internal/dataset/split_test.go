package dataset

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memDataset serves sample i as features {i} and label {i, -i}.
type memDataset struct {
	n        int
	features int
}

func (m memDataset) Len() int { return m.n }

func (m memDataset) Get(i int, _ *rand.Rand) (Sample, error) {
	f := make([]float64, m.features)
	for j := range f {
		f[j] = float64(i)
	}
	return Sample{Features: f, Label: []float64{float64(i), -float64(i)}}, nil
}

func TestSplitLengths(t *testing.T) {
	assert.Equal(t, []int{90, 10}, SplitLengths(100, 0.9))
	assert.Equal(t, []int{9, 2}, SplitLengths(11, 0.9))
	assert.Equal(t, []int{0, 1}, SplitLengths(1, 0.9))
}

func TestRandomSplitSizesAndMembership(t *testing.T) {
	ds := memDataset{n: 100, features: 1}
	parts, err := RandomSplit(ds, SplitLengths(ds.Len(), 0.9), 42)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, 90, parts[0].Len())
	assert.Equal(t, 10, parts[1].Len())

	seen := append(append([]int(nil), parts[0].Indices...), parts[1].Indices...)
	sort.Ints(seen)
	for i, v := range seen {
		require.Equal(t, i, v)
	}

	again, err := RandomSplit(ds, SplitLengths(ds.Len(), 0.9), 42)
	require.NoError(t, err)
	assert.Equal(t, parts[0].Indices, again[0].Indices)
	assert.Equal(t, parts[1].Indices, again[1].Indices)

	other, err := RandomSplit(ds, SplitLengths(ds.Len(), 0.9), 7)
	require.NoError(t, err)
	assert.NotEqual(t, parts[1].Indices, other[1].Indices)
}

func TestRandomSplitRejectsBadLengths(t *testing.T) {
	ds := memDataset{n: 10, features: 1}
	_, err := RandomSplit(ds, []int{5, 4}, 1)
	assert.Error(t, err)
	_, err = RandomSplit(ds, []int{11, -1}, 1)
	assert.Error(t, err)
}

func TestSubsetGetMapsIndices(t *testing.T) {
	sub := &Subset{Parent: memDataset{n: 10, features: 1}, Indices: []int{7, 3}}
	s, err := sub.Get(1, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, s.Features)
	_, err = sub.Get(2, nil)
	assert.Error(t, err)
}
