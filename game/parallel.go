package game

import (
	"runtime"
	"sync"
)

// parallelThreshold is the minimum item count to dispatch to the pool.
// Below this, running on the caller is faster due to channel overhead.
const parallelThreshold = 64

// kernel selects which compute pass a chunk belongs to.
type kernel uint8

const (
	kernelAgents kernel = iota // range of agent indices
	kernelTrail                // range of trail map rows
)

// workChunk represents a range of agents or rows for a worker to process.
type workChunk struct {
	start, end int
	kernel     kernel
}

// workerScratch holds per-worker reusable state.
type workerScratch struct {
	avgRow []float32 // 3x3 averages for the row being diffused
	wraps  int       // wrap events since the last collectWraps
}

// workerPool runs kernel chunks on persistent goroutines.
type workerPool struct {
	numWorkers int
	scratches  []workerScratch
	run        func(chunk workChunk, scratch *workerScratch)

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

// newWorkerPool allocates scratch for numWorkers workers (0 = GOMAXPROCS).
// rowWidth sizes the per-worker diffusion row.
func newWorkerPool(numWorkers, rowWidth int, run func(workChunk, *workerScratch)) *workerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	scratches := make([]workerScratch, numWorkers)
	for i := range scratches {
		scratches[i].avgRow = make([]float32, rowWidth)
	}
	return &workerPool{
		numWorkers: numWorkers,
		scratches:  scratches,
		run:        run,
	}
}

// start launches persistent worker goroutines.
func (p *workerPool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// stop signals all workers to exit and waits for them.
func (p *workerPool) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *workerPool) worker(workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			p.run(chunk, scratch)
			p.doneChan <- struct{}{}
		}
	}
}

// dispatch splits [0, n) into one chunk per worker and blocks until every
// chunk has completed. Returning is the barrier between passes.
func (p *workerPool) dispatch(n int, k kernel) {
	if n <= 0 {
		return
	}

	// Single-threaded for small ranges
	if n < parallelThreshold || p.numWorkers == 1 {
		p.run(workChunk{start: 0, end: n, kernel: k}, &p.scratches[0])
		return
	}

	if !p.running {
		p.start()
	}

	chunkSize := (n + p.numWorkers - 1) / p.numWorkers

	chunksDispatched := 0
	for w := 0; w < p.numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		p.workChan <- workChunk{start: start, end: end, kernel: k}
		chunksDispatched++
	}

	// Wait for all chunks to complete
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
}

// collectWraps sums and resets the per-worker wrap counters.
// Only call between dispatches.
func (p *workerPool) collectWraps() int {
	total := 0
	for i := range p.scratches {
		total += p.scratches[i].wraps
		p.scratches[i].wraps = 0
	}
	return total
}
