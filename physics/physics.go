// Package physics implements the force integrator that lays out the
// simulation store: a damped semi-implicit Euler step composed of link, charge,
// collision and centering terms, cooled by a geometric alpha schedule.
package physics

import (
	"context"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/TFMV/relmap/graph"
)

// DefaultMaxTicks bounds headless runs
const DefaultMaxTicks = 1000

// Params tunes the simulation
type Params struct {
	AlphaStart      float64 `yaml:"alpha_start"`       // alpha after a reheat
	AlphaMin        float64 `yaml:"alpha_min"`         // below this the simulation idles
	AlphaDecay      float64 `yaml:"alpha_decay"`       // fraction of the gap to the target closed per tick
	DragAlphaTarget float64 `yaml:"drag_alpha_target"` // alpha sustained while dragging
	VelocityDecay   float64 `yaml:"velocity_decay"`    // fraction of velocity lost per tick
	TimeStep        float64 `yaml:"time_step"`

	LinkStrength       float64 `yaml:"link_strength"`
	LinkDistanceFactor float64 `yaml:"link_distance_factor"` // rest length = (size_a + size_b) * factor

	ChargeStrength    float64 `yaml:"charge_strength"`
	ChargeDistanceMin float64 `yaml:"charge_distance_min"`

	CollideRadiusFactor float64 `yaml:"collide_radius_factor"` // collision radius = size * factor + padding
	CollidePadding      float64 `yaml:"collide_padding"`
	CollideIterations   int     `yaml:"collide_iterations"`

	CenterStrength float64 `yaml:"center_strength"`

	JitterSeed int64 `yaml:"jitter_seed"`
}

// DefaultParams returns the tuning the canvas view ships with
func DefaultParams() Params {
	return Params{
		AlphaStart:          0.8,
		AlphaMin:            0.001,
		AlphaDecay:          0.05,
		DragAlphaTarget:     0.3,
		VelocityDecay:       0.4,
		TimeStep:            1,
		LinkStrength:        0.12,
		LinkDistanceFactor:  0.9,
		ChargeStrength:      -200,
		ChargeDistanceMin:   1,
		CollideRadiusFactor: 0.6,
		CollidePadding:      8,
		CollideIterations:   2,
		CenterStrength:      0.1,
		JitterSeed:          1,
	}
}

// Force contributes velocity to the nodes of a store for one tick
type Force interface {
	Name() string
	Apply(s *graph.Store, alpha float64)
}

// Simulation advances a store one tick at a time
type Simulation struct {
	params      Params
	alpha       float64
	alphaTarget float64
	ticks       int
	forces      []Force
	center      *CenterForce
	collider    *Collider
}

// New creates a simulation centered on center. Alpha starts at zero; call
// Reheat once the store has nodes.
func New(params Params, center r2.Vec) *Simulation {
	jitter := newJitter(params.JitterSeed)
	centerForce := &CenterForce{Center: center, Strength: params.CenterStrength}

	return &Simulation{
		params: params,
		forces: []Force{
			&LinkForce{
				Strength:       params.LinkStrength,
				DistanceFactor: params.LinkDistanceFactor,
				jitter:         jitter,
			},
			&ChargeForce{
				Strength:    params.ChargeStrength,
				DistanceMin: params.ChargeDistanceMin,
				jitter:      jitter,
			},
		},
		center: centerForce,
		collider: &Collider{
			RadiusFactor: params.CollideRadiusFactor,
			Padding:      params.CollidePadding,
			Iterations:   params.CollideIterations,
			jitter:       jitter,
		},
	}
}

// Params returns the simulation tuning
func (sim *Simulation) Params() Params {
	return sim.params
}

// Alpha returns the current energy
func (sim *Simulation) Alpha() float64 {
	return sim.alpha
}

// AlphaTarget returns the value alpha decays toward
func (sim *Simulation) AlphaTarget() float64 {
	return sim.alphaTarget
}

// Ticks returns the number of steps taken since creation
func (sim *Simulation) Ticks() int {
	return sim.ticks
}

// Reheat raises alpha back to its starting value
func (sim *Simulation) Reheat() {
	sim.alpha = sim.params.AlphaStart
}

// SetAlphaTarget sets the floor alpha decays toward
func (sim *Simulation) SetAlphaTarget(target float64) {
	sim.alphaTarget = clampUnit(target)
}

// SetCenter moves the point the centering force pulls toward
func (sim *Simulation) SetCenter(center r2.Vec) {
	sim.center.Center = center
}

// Center returns the point the centering force pulls toward
func (sim *Simulation) Center() r2.Vec {
	return sim.center.Center
}

// Active reports whether the simulation still needs ticks
func (sim *Simulation) Active() bool {
	return sim.alpha >= sim.params.AlphaMin || sim.alphaTarget > 0
}

// Tick advances the store by one step and returns whether the simulation
// is still active afterwards
func (sim *Simulation) Tick(s *graph.Store) bool {
	sim.alpha += (sim.alphaTarget - sim.alpha) * sim.params.AlphaDecay
	sim.alpha = clampUnit(sim.alpha)

	for _, f := range sim.forces {
		f.Apply(s, sim.alpha)
	}

	keep := 1 - sim.params.VelocityDecay
	dt := sim.params.TimeStep
	for _, n := range s.Nodes() {
		if n.Pinned {
			n.X, n.Y = n.FX, n.FY
			n.VX, n.VY = 0, 0
			continue
		}
		n.VX *= keep
		n.VY *= keep
		n.X += n.VX * dt
		n.Y += n.VY * dt
	}

	sim.center.Apply(s, sim.alpha)
	sim.collider.Resolve(s)

	sim.ticks++
	return sim.Active()
}

// Run ticks until the simulation idles, maxTicks is reached or ctx is done.
// A non-positive maxTicks means DefaultMaxTicks. It returns the number of
// ticks taken.
func (sim *Simulation) Run(ctx context.Context, s *graph.Store, maxTicks int) (int, error) {
	if maxTicks <= 0 {
		maxTicks = DefaultMaxTicks
	}
	n := 0
	for sim.Active() && n < maxTicks {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		default:
		}
		sim.Tick(s)
		n++
	}
	return n, nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
