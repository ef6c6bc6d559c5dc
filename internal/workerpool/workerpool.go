// Package workerpool implements the persistent worker pool behind a
// compression/decompression Context (spec.md §4.11/§5): workers are spawned
// eagerly when the pool is created and wait on a channel (the "barrier")
// until a call hands out work; a closing barrier (sync.WaitGroup) ensures
// every worker's writes are visible before the caller proceeds. Grounded on
// the teacher's own persistent-worker-pool idiom in internal/batch/batch.go
// (scheduler.run: N goroutines ranging over a shared `work` channel, spawned
// once up front via errgroup.Go in a loop) — generalized here from "build N
// packages" to "run N indexed jobs, then report the first error."
package workerpool

import "sync"

type job struct {
	run func()
}

// Pool is a fixed-size set of goroutines that execute indexed jobs handed
// to them by Run, reused across many calls instead of spawned per call.
type Pool struct {
	mu       sync.Mutex
	jobCh    chan job
	stopOne  chan struct{}
	quit     chan struct{}
	workerWG sync.WaitGroup
	n        int
}

// New creates a pool with nthreads workers already running, blocked on the
// internal job channel (spec.md §4.11 "Creating a context with nthreads>1
// spawns workers immediately; they wait on a barrier").
func New(nthreads int) *Pool {
	if nthreads < 1 {
		nthreads = 1
	}
	p := &Pool{
		jobCh:   make(chan job),
		stopOne: make(chan struct{}),
		quit:    make(chan struct{}),
	}
	for i := 0; i < nthreads; i++ {
		p.spawn()
	}
	return p
}

func (p *Pool) spawn() {
	p.workerWG.Add(1)
	p.n++
	go func() {
		defer p.workerWG.Done()
		for {
			select {
			case <-p.quit:
				return
			case <-p.stopOne:
				return
			case j := <-p.jobCh:
				j.run()
			}
		}
	}()
}

// Run dispatches n independent jobs across the pool's workers and blocks
// until every job has returned (the closing barrier of spec.md §5), then
// returns the first non-nil error encountered, mirroring "the leader
// returns the first non-success code."
func (p *Pool) Run(n int64, fn func(i int64) error) error {
	if n <= 0 {
		return nil
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	wg.Add(int(n))
	for i := int64(0); i < n; i++ {
		i := i
		p.jobCh <- job{run: func() {
			defer wg.Done()
			if err := fn(i); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}}
	}
	wg.Wait()
	return firstErr
}

// SetNThreads resizes the pool between calls (spec.md §4.11 "set_nthreads
// is allowed between calls; it resizes the pool"), growing by spawning new
// workers or shrinking by asking excess workers to exit after their current
// job.
func (p *Pool) SetNThreads(n int) {
	if n < 1 {
		n = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.n < n {
		p.spawn()
	}
	for p.n > n {
		p.stopOne <- struct{}{}
		p.n--
	}
}

// NThreads returns the pool's current worker count.
func (p *Pool) NThreads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

// Destroy joins all workers (spec.md §4.11 "Destroying a context joins all
// workers and releases scratches"). The pool must not be used afterward.
func (p *Pool) Destroy() {
	close(p.quit)
	p.workerWG.Wait()
}
