// Package viz renders results in the terminal.
//
//   - [Canvas]: Braille pixel canvas used for trajectories and phase portraits
//   - [Camera] and [Render3D]: perspective projection of a 3D trail onto a canvas
//   - [LinePlot], [Table]: asciigraph charts and lipgloss tables for the CLI
//   - [Model]: live Bubble Tea view of the Lorenz attractor
//
// # Key Bindings
//
//	Space - Pause/Resume
//	R     - Reset to initial state
//	Tab   - Select parameter
//	Up/Dn - Tune selected parameter by 5%
//	[ ]   - Step back/forward through history
//	x y z - Rotate camera (shift reverses)
//	+ -   - Zoom
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
