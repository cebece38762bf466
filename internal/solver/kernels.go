package solver

import "math"

// Factorization kernels. All matrices are row major float64; the
// tensor layer's dtypes are converted at the boundary and results are
// cast back per leaf, so the kernels stay monomorphic.

// luFactor factors the n x n matrix a in place into L\U with partial
// pivoting. It returns the pivot rows and false on an exactly zero
// pivot.
func luFactor(a []float64, n int) ([]int, bool) {
	piv := make([]int, n)
	for k := 0; k < n; k++ {
		p := k
		max := math.Abs(a[k*n+k])
		for i := k + 1; i < n; i++ {
			if v := math.Abs(a[i*n+k]); v > max {
				max, p = v, i
			}
		}
		piv[k] = p
		if p != k {
			for j := 0; j < n; j++ {
				a[k*n+j], a[p*n+j] = a[p*n+j], a[k*n+j]
			}
		}
		pivot := a[k*n+k]
		if pivot == 0 {
			return piv, false
		}
		for i := k + 1; i < n; i++ {
			a[i*n+k] /= pivot
			l := a[i*n+k]
			if l == 0 {
				continue
			}
			for j := k + 1; j < n; j++ {
				a[i*n+j] -= l * a[k*n+j]
			}
		}
	}
	return piv, true
}

// luSolve solves the factored system for one right-hand side.
func luSolve(a []float64, piv []int, b []float64, n int) []float64 {
	x := make([]float64, n)
	copy(x, b)
	for k := 0; k < n; k++ {
		if piv[k] != k {
			x[k], x[piv[k]] = x[piv[k]], x[k]
		}
	}
	// Ly = Pb with unit diagonal.
	for i := 1; i < n; i++ {
		for j := 0; j < i; j++ {
			x[i] -= a[i*n+j] * x[j]
		}
	}
	// Ux = y.
	for i := n - 1; i >= 0; i-- {
		for j := i + 1; j < n; j++ {
			x[i] -= a[i*n+j] * x[j]
		}
		x[i] /= a[i*n+i]
	}
	return x
}

// qrFact holds a Householder QR factorization of a rows x cols matrix
// with rows >= cols: R in the upper triangle of r, reflectors in vs.
type qrFact struct {
	r     []float64 // cols x cols, upper triangular
	vs    [][]float64
	betas []float64
	rows  int
	cols  int
}

// qrFactor computes the factorization. It returns false when a column
// is exactly linearly dependent on the previous ones.
func qrFactor(a []float64, rows, cols int) (*qrFact, bool) {
	work := make([]float64, len(a))
	copy(work, a)
	vs := make([][]float64, cols)
	betas := make([]float64, cols)

	for k := 0; k < cols; k++ {
		var norm float64
		for i := k; i < rows; i++ {
			norm = math.Hypot(norm, work[i*cols+k])
		}
		if norm == 0 {
			return nil, false
		}
		v := make([]float64, rows-k)
		for i := k; i < rows; i++ {
			v[i-k] = work[i*cols+k]
		}
		if v[0] >= 0 {
			v[0] += norm
		} else {
			v[0] -= norm
		}
		var vv float64
		for _, e := range v {
			vv += e * e
		}
		beta := 2 / vv
		for j := k; j < cols; j++ {
			var dot float64
			for i := range v {
				dot += v[i] * work[(k+i)*cols+j]
			}
			f := beta * dot
			for i := range v {
				work[(k+i)*cols+j] -= f * v[i]
			}
		}
		vs[k] = v
		betas[k] = beta
	}

	r := make([]float64, cols*cols)
	for i := 0; i < cols; i++ {
		for j := i; j < cols; j++ {
			r[i*cols+j] = work[i*cols+j]
		}
	}
	return &qrFact{r: r, vs: vs, betas: betas, rows: rows, cols: cols}, true
}

// applyQT overwrites b (length rows) with Qᵀb.
func (q *qrFact) applyQT(b []float64) {
	for k := 0; k < q.cols; k++ {
		v := q.vs[k]
		var dot float64
		for i := range v {
			dot += v[i] * b[k+i]
		}
		f := q.betas[k] * dot
		for i := range v {
			b[k+i] -= f * v[i]
		}
	}
}

// applyQ overwrites b (length rows) with Qb.
func (q *qrFact) applyQ(b []float64) {
	for k := q.cols - 1; k >= 0; k-- {
		v := q.vs[k]
		var dot float64
		for i := range v {
			dot += v[i] * b[k+i]
		}
		f := q.betas[k] * dot
		for i := range v {
			b[k+i] -= f * v[i]
		}
	}
}

// solveR back-substitutes Rx = y using the leading cols entries of y.
func (q *qrFact) solveR(y []float64) ([]float64, bool) {
	n := q.cols
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		s := y[i]
		for j := i + 1; j < n; j++ {
			s -= q.r[i*n+j] * x[j]
		}
		d := q.r[i*n+i]
		if d == 0 {
			return nil, false
		}
		x[i] = s / d
	}
	return x, true
}

// solveRT forward-substitutes Rᵀz = b.
func (q *qrFact) solveRT(b []float64) ([]float64, bool) {
	n := q.cols
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		s := b[i]
		for j := 0; j < i; j++ {
			s -= q.r[j*n+i] * z[j]
		}
		d := q.r[i*n+i]
		if d == 0 {
			return nil, false
		}
		z[i] = s / d
	}
	return z, true
}

// jacobiSVD computes the thin SVD of a rows x cols matrix with
// rows >= cols using one-sided Jacobi rotations: a = u diag(s) vᵀ with
// u rows x cols, s length cols, v cols x cols. Singular values come
// out non-negative but unsorted.
func jacobiSVD(a []float64, rows, cols int) (u, s, v []float64) {
	u = make([]float64, len(a))
	copy(u, a)
	v = make([]float64, cols*cols)
	for i := 0; i < cols; i++ {
		v[i*cols+i] = 1
	}

	const maxSweeps = 60
	tol := 1e-15
	for sweep := 0; sweep < maxSweeps; sweep++ {
		rotated := false
		for p := 0; p < cols-1; p++ {
			for q := p + 1; q < cols; q++ {
				var app, aqq, apq float64
				for i := 0; i < rows; i++ {
					up, uq := u[i*cols+p], u[i*cols+q]
					app += up * up
					aqq += uq * uq
					apq += up * uq
				}
				if math.Abs(apq) <= tol*math.Sqrt(app*aqq) || apq == 0 {
					continue
				}
				rotated = true
				zeta := (aqq - app) / (2 * apq)
				t := math.Copysign(1, zeta) / (math.Abs(zeta) + math.Sqrt(1+zeta*zeta))
				c := 1 / math.Sqrt(1+t*t)
				sn := c * t
				for i := 0; i < rows; i++ {
					up, uq := u[i*cols+p], u[i*cols+q]
					u[i*cols+p] = c*up - sn*uq
					u[i*cols+q] = sn*up + c*uq
				}
				for i := 0; i < cols; i++ {
					vp, vq := v[i*cols+p], v[i*cols+q]
					v[i*cols+p] = c*vp - sn*vq
					v[i*cols+q] = sn*vp + c*vq
				}
			}
		}
		if !rotated {
			break
		}
	}

	s = make([]float64, cols)
	for j := 0; j < cols; j++ {
		var norm float64
		for i := 0; i < rows; i++ {
			norm = math.Hypot(norm, u[i*cols+j])
		}
		s[j] = norm
		if norm > 0 {
			for i := 0; i < rows; i++ {
				u[i*cols+j] /= norm
			}
		}
	}
	return u, s, v
}

// cholFactor factors a symmetric positive definite n x n matrix into
// its lower Cholesky factor in place. It returns false when a pivot is
// not strictly positive.
func cholFactor(a []float64, n int) bool {
	for j := 0; j < n; j++ {
		d := a[j*n+j]
		for k := 0; k < j; k++ {
			d -= a[j*n+k] * a[j*n+k]
		}
		if d <= 0 || math.IsNaN(d) {
			return false
		}
		a[j*n+j] = math.Sqrt(d)
		for i := j + 1; i < n; i++ {
			s := a[i*n+j]
			for k := 0; k < j; k++ {
				s -= a[i*n+k] * a[j*n+k]
			}
			a[i*n+j] = s / a[j*n+j]
		}
	}
	return true
}

// cholSolve solves LLᵀx = b given the lower factor.
func cholSolve(l []float64, b []float64, n int) []float64 {
	x := make([]float64, n)
	copy(x, b)
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			x[i] -= l[i*n+j] * x[j]
		}
		x[i] /= l[i*n+i]
	}
	for i := n - 1; i >= 0; i-- {
		for j := i + 1; j < n; j++ {
			x[i] -= l[j*n+i] * x[j]
		}
		x[i] /= l[i*n+i]
	}
	return x
}

// triSolve solves a triangular system by substitution. unitDiag treats
// every diagonal entry as one without reading it.
func triSolve(a []float64, n int, b []float64, lower, unitDiag bool) ([]float64, bool) {
	x := make([]float64, n)
	copy(x, b)
	if lower {
		for i := 0; i < n; i++ {
			for j := 0; j < i; j++ {
				x[i] -= a[i*n+j] * x[j]
			}
			if !unitDiag {
				d := a[i*n+i]
				if d == 0 {
					return nil, false
				}
				x[i] /= d
			}
		}
		return x, true
	}
	for i := n - 1; i >= 0; i-- {
		for j := i + 1; j < n; j++ {
			x[i] -= a[i*n+j] * x[j]
		}
		if !unitDiag {
			d := a[i*n+i]
			if d == 0 {
				return nil, false
			}
			x[i] /= d
		}
	}
	return x, true
}

// thomasSolve solves a tridiagonal system given the three bands:
// dl (below, dl[0] unused), d (main), du (above, du[n-1] unused).
func thomasSolve(dl, d, du, b []float64, n int) ([]float64, bool) {
	cp := make([]float64, n)
	xp := make([]float64, n)
	if d[0] == 0 {
		return nil, false
	}
	cp[0] = du[0] / d[0]
	xp[0] = b[0] / d[0]
	for i := 1; i < n; i++ {
		denom := d[i] - dl[i]*cp[i-1]
		if denom == 0 {
			return nil, false
		}
		if i < n-1 {
			cp[i] = du[i] / denom
		}
		xp[i] = (b[i] - dl[i]*xp[i-1]) / denom
	}
	x := make([]float64, n)
	x[n-1] = xp[n-1]
	for i := n - 2; i >= 0; i-- {
		x[i] = xp[i] - cp[i]*x[i+1]
	}
	return x, true
}
