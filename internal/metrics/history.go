package metrics

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// EpochLoss is the mean train and validation loss of one epoch.
type EpochLoss struct {
	Epoch int
	Train float64
	Val   float64
}

// History is the ordered per-epoch loss record of a run.
type History struct {
	entries []EpochLoss
}

// Append records an epoch. Epochs must be strictly increasing.
func (h *History) Append(epoch int, train, val float64) error {
	if n := len(h.entries); n > 0 && epoch <= h.entries[n-1].Epoch {
		return errors.Errorf("history: epoch %d after %d", epoch, h.entries[n-1].Epoch)
	}
	h.entries = append(h.entries, EpochLoss{Epoch: epoch, Train: train, Val: val})
	return nil
}

func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of the recorded epochs in order.
func (h *History) Entries() []EpochLoss {
	return append([]EpochLoss(nil), h.entries...)
}

// Matrix lays the history out as an epochs x 2 tensor of (train, val) rows.
func (h *History) Matrix() (*mat.Dense, error) {
	if len(h.entries) == 0 {
		return nil, errors.New("history: no epochs recorded")
	}
	m := mat.NewDense(len(h.entries), 2, nil)
	for i, e := range h.entries {
		m.Set(i, 0, e.Train)
		m.Set(i, 1, e.Val)
	}
	return m, nil
}

// FromMatrix rebuilds a history from Matrix output, numbering epochs from
// startEpoch.
func FromMatrix(m mat.Matrix, startEpoch int) (*History, error) {
	rows, cols := m.Dims()
	if cols != 2 {
		return nil, errors.Errorf("history: expected 2 columns, got %d", cols)
	}
	h := &History{}
	for i := 0; i < rows; i++ {
		if err := h.Append(startEpoch+i, m.At(i, 0), m.At(i, 1)); err != nil {
			return nil, err
		}
	}
	return h, nil
}
