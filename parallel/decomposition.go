package parallel

import (
	log "github.com/sirupsen/logrus"
)

// Decomposition partitions the (time, depth) product across ranks.
// Ranks run as goroutines within the process; each owns a contiguous
// block of times and depths and never communicates during inner
// computation.
type Decomposition struct {
	NprocsInTime  int
	NprocsInDepth int
	timeMap       *PartitionMap
	depthMap      *PartitionMap
}

// CheckProcessorDivisions cleans up a requested rank split the way the
// solvers expect: a singleton axis collapses onto the other one, and
// the product must equal the total rank count.
func CheckProcessorDivisions(nTime, nDepth, reqInTime, reqInDepth, wSize int) (nInTime, nInDepth int) {
	nInTime = reqInTime
	nInDepth = reqInDepth
	switch {
	case nTime == 1:
		nInTime = 1
		nInDepth = wSize
	case nDepth == 1:
		nInDepth = 1
		nInTime = wSize
	}
	if nInTime != reqInTime {
		log.Warnf("changing number of processors in time to %d from %d", nInTime, reqInTime)
	}
	if nInDepth != reqInDepth {
		log.Warnf("changing number of processors in depth to %d from %d", nInDepth, reqInDepth)
	}
	return
}

func NewDecomposition(nTime, nDepth, nInTime, nInDepth int) *Decomposition {
	return &Decomposition{
		NprocsInTime:  nInTime,
		NprocsInDepth: nInDepth,
		timeMap:       NewPartitionMap(nInTime, nTime),
		depthMap:      NewPartitionMap(nInDepth, nDepth),
	}
}

func (d *Decomposition) Size() int { return d.NprocsInTime * d.NprocsInDepth }

// RankRange returns the half-open [t0,t1) x [d0,d1) block owned by rank.
func (d *Decomposition) RankRange(rank int) (t0, t1, d0, d1 int) {
	it := rank / d.NprocsInDepth
	id := rank % d.NprocsInDepth
	t0, t1 = d.timeMap.GetBucketRange(it)
	d0, d1 = d.depthMap.GetBucketRange(id)
	return
}

// EachRank runs fn once per rank, concurrently, and waits for all of
// them. This is the in-process analogue of the MPI rank loop; fn must
// write only to the (time, depth) block RankRange hands it.
func (d *Decomposition) EachRank(fn func(rank, t0, t1, d0, d1 int)) {
	done := make(chan struct{})
	for rank := 0; rank < d.Size(); rank++ {
		go func(rank int) {
			t0, t1, d0, d1 := d.RankRange(rank)
			fn(rank, t0, t1, d0, d1)
			done <- struct{}{}
		}(rank)
	}
	for rank := 0; rank < d.Size(); rank++ {
		<-done
	}
}
