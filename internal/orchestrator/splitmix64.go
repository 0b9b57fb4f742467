package orchestrator

// SplitMix64 derives independent, reproducible sub-seeds from a master
// seed, indexed by worker id, per spec §4.5 and §9. Unlike sharing one
// RNG behind a mutex, a counter-based split yields streams that are
// independent of scheduling order: worker i always gets the same
// sub-seed for a given master seed, regardless of how many workers
// actually run or in what order they finish.
type splitMix64 struct {
	state uint64
}

func newSplitMix64(seed uint64) *splitMix64 {
	return &splitMix64{state: seed}
}

func (s *splitMix64) next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// subSeed derives worker i's sub-seed from the master seed by running a
// fresh SplitMix64 stream seeded at (masterSeed + i*0x2545F4914F6CDD1D) and taking its first
// output. This keeps sub-seeds well-distributed even for adjacent
// worker ids and master seeds.
func subSeed(masterSeed uint64, workerID int) uint64 {
	sm := newSplitMix64(masterSeed + uint64(workerID)*0x2545F4914F6CDD1D)
	return sm.next()
}
