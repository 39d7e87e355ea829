package checkpoint

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"gazetrain/internal/metrics"
)

// Ext is the extension of every file the store writes.
const Ext = ".ckpt"

// HistoryFile holds the loss history tensor.
const HistoryFile = "loss" + Ext

// PlotFile holds the rendered loss curve.
const PlotFile = "loss.png"

const historyTensor = "loss"

// FormatLoss rounds x to 6 decimal places and prints the shortest decimal
// that represents the rounded value.
func FormatLoss(x float64) string {
	return strconv.FormatFloat(math.Round(x*1e6)/1e6, 'f', -1, 64)
}

// EpochFileName names the weights saved after epoch.
func EpochFileName(epoch int, valLoss, trainLoss float64) string {
	return fmt.Sprintf("epoch_%d_test%s_train%s%s", epoch, FormatLoss(valLoss), FormatLoss(trainLoss), Ext)
}

// Store persists checkpoints under a directory.
type Store struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger
}

// NewStore creates dir if needed.
func NewStore(fs afero.Fs, dir string, logger *zap.Logger) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create save dir %s", dir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{fs: fs, dir: dir, logger: logger}, nil
}

// Dir is the directory checkpoints are written to.
func (s *Store) Dir() string { return s.dir }

// SaveEpoch writes the model state for epoch and returns the file path.
func (s *Store) SaveEpoch(epoch int, valLoss, trainLoss float64, state map[string]*mat.Dense) (string, error) {
	path := filepath.Join(s.dir, EpochFileName(epoch, valLoss, trainLoss))
	if err := s.write(path, state); err != nil {
		return "", err
	}
	return path, nil
}

// SaveHistory writes the loss history as a single epochs x 2 tensor.
func (s *Store) SaveHistory(h *metrics.History) (string, error) {
	m, err := h.Matrix()
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, HistoryFile)
	if err := s.write(path, map[string]*mat.Dense{historyTensor: m}); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads the tensors stored at path.
func (s *Store) Load(path string) (map[string]*mat.Dense, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open checkpoint")
	}
	defer f.Close()

	tensors, err := ReadTensors(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read checkpoint %s", path)
	}
	return tensors, nil
}

// LoadHistory reads the history file, numbering epochs from startEpoch.
func (s *Store) LoadHistory(startEpoch int) (*metrics.History, error) {
	tensors, err := s.Load(filepath.Join(s.dir, HistoryFile))
	if err != nil {
		return nil, err
	}
	m, ok := tensors[historyTensor]
	if !ok {
		return nil, errors.Errorf("%s has no %q tensor", HistoryFile, historyTensor)
	}
	return metrics.FromMatrix(m, startEpoch)
}

func (s *Store) write(path string, tensors map[string]*mat.Dense) error {
	f, err := s.fs.Create(path)
	if err != nil {
		return errors.Wrap(err, "create checkpoint")
	}
	if err := WriteTensors(f, tensors); err != nil {
		f.Close()
		return errors.Wrapf(err, "write checkpoint %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close checkpoint %s", path)
	}
	if info, err := s.fs.Stat(path); err == nil {
		s.logger.Debug("checkpoint written",
			zap.String("path", path),
			zap.Int("tensors", len(tensors)),
			zap.String("size", humanize.Bytes(uint64(info.Size()))),
		)
	}
	return nil
}
