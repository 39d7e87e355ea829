package checkpoint

import (
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"gazetrain/internal/metrics"
)

// PlotHistory renders train and validation loss per epoch to loss.png.
func (s *Store) PlotHistory(h *metrics.History) (string, error) {
	entries := h.Entries()
	if len(entries) == 0 {
		return "", errors.New("plot: no epochs recorded")
	}
	train := make(plotter.XYs, len(entries))
	val := make(plotter.XYs, len(entries))
	for i, e := range entries {
		train[i] = plotter.XY{X: float64(e.Epoch), Y: e.Train}
		val[i] = plotter.XY{X: float64(e.Epoch), Y: e.Val}
	}

	p := plot.New()
	p.Title.Text = "Gaze loss"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "MSE"
	if err := plotutil.AddLinePoints(p, "train", train, "test", val); err != nil {
		return "", errors.Wrap(err, "plot lines")
	}

	wt, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return "", errors.Wrap(err, "render plot")
	}
	path := filepath.Join(s.dir, PlotFile)
	f, err := s.fs.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "create plot")
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return "", errors.Wrapf(err, "write plot %s", path)
	}
	return path, errors.Wrapf(f.Close(), "close plot %s", path)
}
