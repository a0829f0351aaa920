package ingest

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"altitude-fusion/utils"
)

// Scenario gives the true altitude in metres t seconds into a simulated flight.
type Scenario interface {
	Altitude(t float64) float64
}

// FreeFallParachute descends from StartHeight with constant acceleration
// Gravity·ParachuteFactor until it reaches the ground.
type FreeFallParachute struct {
	StartHeight     float64
	Gravity         float64 // m/s², negative is down
	ParachuteFactor float64
}

func (s FreeFallParachute) Altitude(t float64) float64 {
	a := s.Gravity * s.ParachuteFactor
	return math.Max(0, s.StartHeight+0.5*a*t*t)
}

// Static holds a constant altitude.
type Static struct {
	Height float64
}

func (s Static) Altitude(float64) float64 { return s.Height }

// NewScenario builds the scenario named in the simulation config. Unknown
// names fall back to Static with a warning.
func NewScenario(cfg utils.SimulationConfig) Scenario {
	switch cfg.Scenario {
	case "free_fall_parachute":
		g := cfg.Gravity
		if g == 0 {
			g = -9.81
		}
		pf := cfg.ParachuteFactor
		if pf == 0 {
			pf = 0.5
		}
		return FreeFallParachute{StartHeight: cfg.StartHeight, Gravity: g, ParachuteFactor: pf}
	case "static", "":
		return Static{Height: cfg.StartHeight}
	}
	utils.L().Warn("unknown scenario %q, holding altitude at %.1f m", cfg.Scenario, cfg.StartHeight)
	return Static{Height: cfg.StartHeight}
}

// gaussian returns zero-mean noise with the given variance. A zero variance
// yields a distribution that always returns 0.
func gaussian(variance float64, seed, stream uint64) distuv.Normal {
	return distuv.Normal{
		Mu:    0,
		Sigma: math.Sqrt(math.Max(variance, 0)),
		Src:   rand.NewPCG(seed, stream),
	}
}
