// Package dynamo provides the core primitives shared by every solver in odelab.
//
// Two families of problems are covered:
//
//   - scalar first-order ODEs dy/dx = f(y, x), described by a [Derivative]
//     and solved into a [Trajectory] of [Point] values;
//   - vector systems dX/dt = f(X, t), described by a [System] and advanced
//     by an [Integrator] under a [Simulator].
//
// # Example
//
//	lorenz := physics.NewLorenz()
//	s := dynamo.New(lorenz, integrators.NewEuler())
//	result, err := s.Run(ctx, dynamo.State{0, 1, 1.05}, dynamo.Config{Dt: 0.01, Steps: 10000})
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. Use [RunAll] to execute several
// independent simulations concurrently.
package dynamo
