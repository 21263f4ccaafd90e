// Package viz renders drivetrain runs in the terminal.
//
//   - [Plot]: asciigraph charts of a recorded trace
//   - [Track]: Braille top-down map of the odometry path
//   - [Monitor]: Bubble Tea live view of a running program
//
// # Key Bindings
//
//	Tab   - Select next tunable
//	Up/K  - Increase selected tunable by 5%
//	Down/J- Decrease selected tunable by 5%
//	Q     - Quit
package viz
