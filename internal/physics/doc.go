// Package physics defines the model problems: scalar initial value problems
// with known closed forms, and small vector systems.
//
//   - [RationalExp], [Linear], [Decay]: scalar test equations
//   - [Thermal]: CPU temperature under load
//   - [Lorenz]: butterfly attractor, implements [dynamo.Configurable]
//   - [Forced]: y'' + w^2 y = g(x) with Green's-function solutions
//   - [VariableCoefficient]: y'' = (x - (x^2+4)y)/(x^2+4)
//
// Vector models implement [dynamo.System] and can be driven by any
// [dynamo.Integrator]:
//
//	sim := dynamo.New(physics.NewLorenzRho(10), integrators.NewEuler())
package physics
