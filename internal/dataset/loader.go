package dataset

import (
	"context"
	"math/rand"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Batch is a minibatch of stacked features and labels.
type Batch struct {
	Inputs *mat.Dense
	Labels *mat.Dense
}

// Size is the number of samples in the batch.
func (b Batch) Size() int {
	r, _ := b.Inputs.Dims()
	return r
}

// Loader groups a dataset into minibatches built by a pool of workers.
type Loader struct {
	Dataset    Dataset
	BatchSize  int
	Shuffle    bool
	NumWorkers int
	Seed       int64
}

// NumBatches is the number of batches per epoch, counting a trailing
// partial batch.
func (l *Loader) NumBatches() int {
	if l.BatchSize <= 0 {
		return 0
	}
	return (l.Dataset.Len() + l.BatchSize - 1) / l.BatchSize
}

// Order returns the sample order for epoch. With Shuffle it is a
// permutation seeded by (Seed, epoch).
func (l *Loader) Order(epoch int) []int {
	n := l.Dataset.Len()
	if !l.Shuffle {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		return order
	}
	return rand.New(rand.NewSource(epochSeed(l.Seed, epoch, -1))).Perm(n)
}

// Epoch streams one pass over the dataset. Batches arrive in order; the
// batch channel closes when the pass is complete or the first error is
// reported on the error channel.
func (l *Loader) Epoch(ctx context.Context, epoch int) (<-chan Batch, <-chan error, error) {
	if l.Dataset == nil {
		return nil, nil, errors.New("loader: no dataset")
	}
	if l.BatchSize <= 0 {
		return nil, nil, errors.Errorf("loader: batch size must be > 0 (got %d)", l.BatchSize)
	}
	workers := l.NumWorkers
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	jobs := make(chan batchJob, workers)
	results := make(chan batchResult, workers)
	out := make(chan Batch, workers)
	errCh := make(chan error, 1)

	go produceBatchJobs(ctx, jobs, l.Order(epoch), l.BatchSize)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.worker(ctx, epoch, jobs, results)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer cancel()
		defer close(errCh)
		defer close(out)
		runAggregator(ctx, results, out, errCh)
	}()

	return out, errCh, nil
}

type batchJob struct {
	id      int
	indices []int
}

type batchResult struct {
	id    int
	batch Batch
	err   error
}

func produceBatchJobs(ctx context.Context, jobs chan<- batchJob, order []int, batchSize int) {
	defer close(jobs)
	for id, start := 0, 0; start < len(order); id, start = id+1, start+batchSize {
		end := start + batchSize
		if end > len(order) {
			end = len(order)
		}
		select {
		case <-ctx.Done():
			return
		case jobs <- batchJob{id: id, indices: order[start:end]}:
		}
	}
}

func (l *Loader) worker(ctx context.Context, epoch int, jobs <-chan batchJob, results chan<- batchResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			batch, err := l.build(epoch, job.indices)
			select {
			case <-ctx.Done():
				return
			case results <- batchResult{id: job.id, batch: batch, err: err}:
			}
		}
	}
}

func (l *Loader) build(epoch int, indices []int) (Batch, error) {
	var inputs, labels []float64
	features := 0
	for _, idx := range indices {
		rng := rand.New(rand.NewSource(epochSeed(l.Seed, epoch, idx)))
		s, err := l.Dataset.Get(idx, rng)
		if err != nil {
			return Batch{}, errors.Wrapf(err, "sample %d", idx)
		}
		if features == 0 {
			features = len(s.Features)
			inputs = make([]float64, 0, len(indices)*features)
			labels = make([]float64, 0, len(indices)*LabelDims)
		}
		if len(s.Features) != features || len(s.Label) != LabelDims {
			return Batch{}, errors.Errorf("sample %d: shape %d/%d, want %d/%d", idx, len(s.Features), len(s.Label), features, LabelDims)
		}
		inputs = append(inputs, s.Features...)
		labels = append(labels, s.Label...)
	}
	if features == 0 {
		return Batch{}, errors.New("loader: empty sample features")
	}
	return Batch{
		Inputs: mat.NewDense(len(indices), features, inputs),
		Labels: mat.NewDense(len(indices), LabelDims, labels),
	}, nil
}

// runAggregator re-orders worker results by batch id.
func runAggregator(ctx context.Context, results <-chan batchResult, out chan<- Batch, errCh chan<- error) {
	pending := make(map[int]batchResult)
	next := 0
	for {
		res, ok := pending[next]
		if !ok {
			select {
			case <-ctx.Done():
				return
			case res, ok = <-results:
				if !ok {
					return
				}
				pending[res.id] = res
			}
			continue
		}
		if res.err != nil {
			errCh <- res.err
			return
		}
		select {
		case <-ctx.Done():
			return
		case out <- res.batch:
		}
		delete(pending, next)
		next++
	}
}

// epochSeed derives a stream seed for an epoch and sample.
func epochSeed(seed int64, epoch, index int) int64 {
	return seed*1000003 + int64(epoch)*7919 + int64(index) + 1
}
