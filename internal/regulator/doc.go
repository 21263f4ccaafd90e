// Package regulator provides the PID transfer functions used by motion
// actions and robot programs.
//
//   - [Value]: raw-value PID, error = target - measured
//   - [Percent]: PID over percent inputs in [-100, 100] with asymmetric
//     error normalization around an off-center target
//
// Gains and targets are [Param] values, either fixed or computed on every
// call, so constants can be tuned while a loop is running:
//
//	reg := regulator.NewValue(regulator.Gains{
//		P:      regulator.Fixed(1),
//		I:      regulator.Fixed(0.1),
//		D:      regulator.Fixed(2),
//		Target: regulator.Computed(func() float64 { return ramp(time.Since(start)) }),
//	})
//	duty := regulator.Clamp(reg.Regulate(float64(motor.Position())), 100)
//
// The integral term decays by half on every call instead of being clamped,
// which bounds windup without an explicit limit.
package regulator
