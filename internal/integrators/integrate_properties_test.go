package integrators

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odelab/internal/dynamo"
)

var _ = Describe("Integrate", func() {
	decay := func(y, x float64) float64 { return -y }

	DescribeTable("returns exactly n points",
		func(n int, conv dynamo.SeedConvention) {
			traj, err := Integrate(decay, 0, 1, 0.1, n, WithSeedConvention(conv))
			Expect(err).NotTo(HaveOccurred())
			Expect(traj).To(HaveLen(n))
		},
		Entry("one point, seed included", 1, dynamo.IncludeSeed),
		Entry("one point, seed excluded", 1, dynamo.ExcludeSeed),
		Entry("many points, seed included", 250, dynamo.IncludeSeed),
		Entry("many points, seed excluded", 250, dynamo.ExcludeSeed),
	)

	It("spaces abscissae by h", func() {
		traj, err := Integrate(decay, 2, 1, 0.05, 40)
		Expect(err).NotTo(HaveOccurred())
		for i := 1; i < len(traj); i++ {
			Expect(traj[i].X - traj[i-1].X).To(BeNumerically("~", 0.05, 1e-12))
		}
	})

	It("reproduces a linear solution to rounding", func() {
		// y = 3 + 2x solves dy/dx = 2.
		traj, err := Integrate(func(y, x float64) float64 { return 2 }, 0, 3, 0.125, 17)
		Expect(err).NotTo(HaveOccurred())
		for _, p := range traj {
			Expect(p.Y).To(BeNumerically("~", 3+2*p.X, 1e-12))
		}
	})

	It("is fourth order on a smooth problem", func() {
		exact := func(x float64) float64 { return 2*math.Exp(x) - x - 1 }
		maxErr := func(h float64, n int) float64 {
			traj, err := Integrate(func(y, x float64) float64 { return x + y }, 0, 1, h, n)
			Expect(err).NotTo(HaveOccurred())
			m := 0.0
			for _, p := range traj {
				m = math.Max(m, math.Abs(p.Y-exact(p.X)))
			}
			return m
		}

		coarse := maxErr(0.1, 11)
		fine := maxErr(0.05, 21)
		Expect(coarse / fine).To(BeNumerically(">", 12))
		Expect(coarse / fine).To(BeNumerically("<", 20))
	})

	It("returns the prefix computed before a blow-up", func() {
		f := func(y, x float64) float64 {
			if x >= 0.3 {
				return math.Inf(1)
			}
			return 1
		}
		traj, err := Integrate(f, 0, 0, 0.1, 10)
		Expect(errors.Is(err, dynamo.ErrNonFiniteDerivative)).To(BeTrue())
		Expect(traj.IsValid()).To(BeTrue())
		Expect(len(traj)).To(BeNumerically("<", 10))
	})

	It("agrees with the adaptive solver", func() {
		traj, err := Integrate(rationalExp, 1, 5, 0.02, 101)
		Expect(err).NotTo(HaveOccurred())

		ref, err := Solve(dynamo.Scalar{F: rationalExp}, dynamo.State{5}, traj.Xs(), DefaultTolerances())
		Expect(err).NotTo(HaveOccurred())
		Expect(ref).To(HaveLen(len(traj)))
		for i, p := range traj {
			Expect(p.Y).To(BeNumerically("~", ref[i][0], 1e-7))
		}
	})
})
