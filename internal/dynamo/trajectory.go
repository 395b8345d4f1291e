package dynamo

// Point is one (x, y) sample of a scalar solution.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Trajectory is an ordered sequence of points, in increasing step order.
type Trajectory []Point

func (t Trajectory) Xs() []float64 {
	xs := make([]float64, len(t))
	for i, p := range t {
		xs[i] = p.X
	}
	return xs
}

func (t Trajectory) Ys() []float64 {
	ys := make([]float64, len(t))
	for i, p := range t {
		ys[i] = p.Y
	}
	return ys
}

// Last returns the final point, or false for an empty trajectory.
func (t Trajectory) Last() (Point, bool) {
	if len(t) == 0 {
		return Point{}, false
	}
	return t[len(t)-1], true
}

func (t Trajectory) IsValid() bool {
	for _, p := range t {
		if !isFinite(p.X) || !isFinite(p.Y) {
			return false
		}
	}
	return true
}

// FromSlices zips xs and ys into a trajectory; the shorter slice bounds it.
func FromSlices(xs, ys []float64) Trajectory {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	t := make(Trajectory, n)
	for i := 0; i < n; i++ {
		t[i] = Point{X: xs[i], Y: ys[i]}
	}
	return t
}

// Scalar lifts a Derivative into a one-dimensional System so that the vector
// integrators can drive it.
type Scalar struct {
	F Derivative
}

func (s Scalar) StateDim() int { return 1 }

func (s Scalar) Derive(x State, t float64) State {
	return State{s.F(x[0], t)}
}
