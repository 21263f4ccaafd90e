package simulation

// derivFunc returns dx/dt of a state under a constant input.
type derivFunc func(x []float64, u float64) []float64

// rk4 is a fixed-step Runge-Kutta integrator with reusable scratch
// buffers. It is not safe for concurrent use.
type rk4 struct {
	k1, k2, k3, k4 []float64
	scratch        []float64
}

func (r *rk4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make([]float64, n)
		r.k2 = make([]float64, n)
		r.k3 = make([]float64, n)
		r.k4 = make([]float64, n)
		r.scratch = make([]float64, n)
	}
}

// step advances x in place by dt seconds.
func (r *rk4) step(f derivFunc, x []float64, u, dt float64) {
	n := len(x)
	r.ensureScratch(n)

	copy(r.k1, f(x, u))
	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k1[i]
	}
	copy(r.k2, f(r.scratch, u))
	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*0.5*r.k2[i]
	}
	copy(r.k3, f(r.scratch, u))
	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	copy(r.k4, f(r.scratch, u))

	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		x[i] += dt6 * (r.k1[i] + 2*r.k2[i] + 2*r.k3[i] + r.k4[i])
	}
}
