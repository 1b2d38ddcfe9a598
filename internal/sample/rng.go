package sample

// rng is a splitmix64 generator. The stdlib sources make no cross-version
// output guarantee, and the dataset artifact must be reproducible
// byte-for-byte anywhere, so the generator carries its own.
type rng struct {
	state uint64
}

func newRNG(seed uint64) *rng {
	return &rng{state: seed}
}

func (r *rng) next() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// float64 returns a uniform value in [0, 1).
func (r *rng) float64() float64 {
	return float64(r.next()>>11) / float64(1<<53)
}

func (r *rng) intn(n int) int {
	return int(r.next() % uint64(n))
}
