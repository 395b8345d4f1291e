package physics

import (
	"fmt"

	"github.com/san-kum/odelab/internal/dynamo"
)

// Lorenz is the three-variable convection model
//
//	x' = sigma(y - x)
//	y' = x(rho - z) - y
//	z' = xy - beta z
type Lorenz struct{ sigma, rho, beta float64 }

const (
	LorenzSigma = 10.0
	LorenzRho   = 28.0
	LorenzBeta  = 2.667
)

func NewLorenz() *Lorenz { return &Lorenz{LorenzSigma, LorenzRho, LorenzBeta} }

// NewLorenzRho keeps the default sigma and beta.
func NewLorenzRho(rho float64) *Lorenz { return &Lorenz{LorenzSigma, rho, LorenzBeta} }

func NewLorenzParams(sigma, rho, beta float64) *Lorenz { return &Lorenz{sigma, rho, beta} }

func (l *Lorenz) StateDim() int { return 3 }

func (l *Lorenz) Derive(s dynamo.State, _ float64) dynamo.State {
	return dynamo.State{l.sigma * (s[1] - s[0]), s[0]*(l.rho-s[2]) - s[1], s[0]*s[1] - l.beta*s[2]}
}

func (l *Lorenz) DefaultState() dynamo.State { return dynamo.State{0.0, 1.0, 1.05} }

func (l *Lorenz) GetParams() map[string]float64 {
	return map[string]float64{"sigma": l.sigma, "rho": l.rho, "beta": l.beta}
}

func (l *Lorenz) SetParam(n string, v float64) error {
	switch n {
	case "sigma":
		l.sigma = v
	case "rho":
		l.rho = v
	case "beta":
		l.beta = v
	default:
		return fmt.Errorf("lorenz: unknown parameter %q", n)
	}
	return nil
}

// LorenzRegime is one of the named rho settings studied side by side.
type LorenzRegime struct {
	Name string
	Rho  float64
}

// LorenzRegimes returns the chaotic, semi-chaotic and non-chaotic settings.
func LorenzRegimes() []LorenzRegime {
	return []LorenzRegime{
		{Name: "chaotic", Rho: 28},
		{Name: "semi-chaotic", Rho: 10},
		{Name: "non-chaotic", Rho: 0},
	}
}
