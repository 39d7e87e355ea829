package dataset

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Subset exposes a fixed selection of indices of a parent dataset.
type Subset struct {
	Parent  Dataset
	Indices []int
}

func (s *Subset) Len() int { return len(s.Indices) }

func (s *Subset) Get(i int, rng *rand.Rand) (Sample, error) {
	if i < 0 || i >= len(s.Indices) {
		return Sample{}, errors.Errorf("subset: index %d out of range [0, %d)", i, len(s.Indices))
	}
	return s.Parent.Get(s.Indices[i], rng)
}

// SplitLengths returns [int(n*ratio), n-int(n*ratio)].
func SplitLengths(n int, ratio float64) []int {
	train := int(float64(n) * ratio)
	return []int{train, n - train}
}

// RandomSplit partitions ds into non-overlapping subsets of the given
// lengths. Membership depends only on seed and ds.Len().
func RandomSplit(ds Dataset, lengths []int, seed int64) ([]*Subset, error) {
	total := 0
	for _, l := range lengths {
		if l < 0 {
			return nil, errors.Errorf("split: negative length %d", l)
		}
		total += l
	}
	if total != ds.Len() {
		return nil, errors.Errorf("split: lengths sum to %d, dataset has %d samples", total, ds.Len())
	}

	perm := rand.New(rand.NewSource(seed)).Perm(total)
	out := make([]*Subset, 0, len(lengths))
	offset := 0
	for _, l := range lengths {
		out = append(out, &Subset{Parent: ds, Indices: perm[offset : offset+l : offset+l]})
		offset += l
	}
	return out, nil
}
