// Package parallel provides the two-level work decomposition used by
// the solvers: an outer rank split of the (time, depth) product and an
// inner dynamically-scheduled loop over spatial points within a rank.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(parallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: parallelDegree,
		Partitions:     make([][2]int, parallelDegree),
	}
	for n := 0; n < parallelDegree; n++ {
		pm.Partitions[n] = pm.split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bucketNum int) int {
	k1, k2 := pm.GetBucketRange(bucketNum)
	return k2 - k1
}

// split1D splits one dimension into ParallelDegree pieces with a
// maximum imbalance of one item.
func (pm *PartitionMap) split1D(threadNum int) (bucket [2]int) {
	var (
		nPart            = pm.MaxIndex / pm.ParallelDegree
		startAdd, endAdd int
		remainder        = pm.MaxIndex % pm.ParallelDegree
	)
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*nPart + startAdd
	bucket[1] = bucket[0] + nPart + endAdd
	return
}

// ChunkSize reproduces the spatial-loop chunking rule: big enough to
// amortise scheduling, small enough to load-balance the mask.
func ChunkSize(nLat, nLon, numThreads int) int {
	c := nLat * nLon / (64 * numThreads)
	if c < 1 {
		c = 1
	}
	return c
}

// NumThreads is the inner-loop worker count.
func NumThreads() int { return runtime.NumCPU() }

// For runs fn(i) for i in [0, n) across NumThreads workers with
// dynamically scheduled chunks. It returns when all iterations have
// completed. Iterations must write only to indices they own.
func For(n, chunk int, fn func(i int)) {
	ForThreads(n, chunk, NumThreads(), func(i, _ int) { fn(i) })
}

// ForThreads is For with an explicit worker count; fn also receives the
// worker id so callers can keep per-thread scratch.
func ForThreads(n, chunk, numWorkers int, fn func(i, tid int)) {
	if chunk < 1 {
		chunk = 1
	}
	if numWorkers > n/chunk+1 {
		numWorkers = n/chunk + 1
	}
	if numWorkers <= 1 {
		for i := 0; i < n; i++ {
			fn(i, 0)
		}
		return
	}
	var (
		next int64
		wg   sync.WaitGroup
	)
	wg.Add(numWorkers)
	for tid := 0; tid < numWorkers; tid++ {
		go func(tid int) {
			defer wg.Done()
			for {
				start := int(atomic.AddInt64(&next, int64(chunk))) - chunk
				if start >= n {
					return
				}
				end := start + chunk
				if end > n {
					end = n
				}
				for i := start; i < end; i++ {
					fn(i, tid)
				}
			}
		}(tid)
	}
	wg.Wait()
}
