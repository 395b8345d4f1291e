// Package analysis judges and characterises numerical solutions.
//
//   - [Compare]: elementwise error of a trajectory against a reference grid
//   - [Convergence]: step-halving study and observed order of accuracy
//   - [LyapunovExponent]: largest Lyapunov exponent via trajectory separation
//   - [BifurcationDiagram]: parameter sweep recording local maxima
//   - [GeneratePhasePortrait]: 2D projection of a system run
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda := analysis.LyapunovExponent(lorenz, newEuler, x0, 0.01, 10000, 1e-8)
//	if analysis.Classify(lambda, 0.05) == analysis.Chaotic {
//	    // sensitive dependence on initial conditions
//	}
package analysis
