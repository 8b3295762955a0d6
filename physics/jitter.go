package physics

import (
	"hash/fnv"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r2"
)

// nudgeScale keeps tie-breaking perturbations far below a pixel
const nudgeScale = 1e-6

// jitter breaks ties between coincident nodes. Directions are sampled from a
// seeded simplex field at coordinates derived from the pair's IDs, so the same
// pair always separates the same way and runs are reproducible.
type jitter struct {
	noise opensimplex.Noise
}

func newJitter(seed int64) *jitter {
	return &jitter{noise: opensimplex.New(seed)}
}

// direction returns a unit vector for the ordered pair (a, b). Swapping the
// pair flips the vector so both members agree on which way to move.
func (j *jitter) direction(a, b string) r2.Vec {
	if a > b {
		return r2.Scale(-1, j.direction(b, a))
	}

	h := fnv.New64a()
	h.Write([]byte(a))
	h.Write([]byte{0})
	h.Write([]byte(b))
	sum := h.Sum64()

	// Spread the hash over the noise plane; offsets avoid the lattice points
	// where simplex noise is exactly zero.
	u := float64(sum&0xffff)/97 + 0.31
	v := float64((sum>>16)&0xffff)/89 + 0.57
	angle := j.noise.Eval2(u, v) * math.Pi

	return r2.Vec{X: math.Cos(angle), Y: math.Sin(angle)}
}

// nudge returns a tiny displacement along direction(a, b)
func (j *jitter) nudge(a, b string) r2.Vec {
	return r2.Scale(nudgeScale, j.direction(a, b))
}
