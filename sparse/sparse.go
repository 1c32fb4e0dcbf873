// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sparse provides compressed sparse column matrices and the few
// kernels a first-order solver needs from them: mat-vec products, row and
// column norms and diagonal scaling. Matrices are immutable in structure
// after construction; only the numerical values may be rescaled in place.
package sparse

import (
	"errors"
	"math"
)

var (
	// ErrDimension indicates inconsistent matrix dimensions or slice lengths.
	ErrDimension = errors.New("sparse: dimension mismatch")
	// ErrIndex indicates a row or column index out of range, or a row index
	// out of order inside a column.
	ErrIndex = errors.New("sparse: bad row index")
)

// CSC is a sparse matrix in compressed sparse column form.
//
// Column j occupies the half-open range P[j]:P[j+1] of I and X, with I
// holding strictly increasing row indices and X the matching values.
type CSC struct {
	Rows, Cols int
	P          []int     // column pointers, len Cols+1
	I          []int     // row indices, len nnz
	X          []float64 // values, len nnz
}

// NewCSC validates and wraps raw CSC storage. The slices are retained.
func NewCSC(rows, cols int, p, i []int, x []float64) (*CSC, error) {
	if rows < 0 || cols < 0 || len(p) != cols+1 || len(i) != len(x) || p[0] != 0 || p[cols] != len(i) {
		return nil, ErrDimension
	}
	for j := 0; j < cols; j++ {
		if p[j] > p[j+1] {
			return nil, ErrDimension
		}
		last := -1
		for k := p[j]; k < p[j+1]; k++ {
			if i[k] <= last || i[k] >= rows {
				return nil, ErrIndex
			}
			last = i[k]
		}
	}
	return &CSC{Rows: rows, Cols: cols, P: p, I: i, X: x}, nil
}

// Identity returns the n×n identity.
func Identity(n int) *CSC {
	p := make([]int, n+1)
	i := make([]int, n)
	x := make([]float64, n)
	for j := 0; j < n; j++ {
		p[j+1] = j + 1
		i[j] = j
		x[j] = 1
	}
	return &CSC{Rows: n, Cols: n, P: p, I: i, X: x}
}

// FromDense builds a CSC matrix from a row-major dense slice, dropping
// exact zeros.
func FromDense(rows, cols int, a []float64) *CSC {
	b := NewBuilder(rows, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if v := a[r*cols+c]; v != 0 {
				b.Add(r, c, v)
			}
		}
	}
	m, _ := b.Build()
	return m
}

// Clone returns a deep copy.
func (m *CSC) Clone() *CSC {
	p := make([]int, len(m.P))
	i := make([]int, len(m.I))
	x := make([]float64, len(m.X))
	copy(p, m.P)
	copy(i, m.I)
	copy(x, m.X)
	return &CSC{Rows: m.Rows, Cols: m.Cols, P: p, I: i, X: x}
}

// Nnz reports the number of stored entries.
func (m *CSC) Nnz() int { return len(m.X) }

// MulVecAdd computes y += A·x.
func (m *CSC) MulVecAdd(y, x []float64) {
	for j := 0; j < m.Cols; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		for k := m.P[j]; k < m.P[j+1]; k++ {
			y[m.I[k]] += m.X[k] * xj
		}
	}
}

// MulTVecAdd computes y += Aᵀ·x.
func (m *CSC) MulTVecAdd(y, x []float64) {
	for j := 0; j < m.Cols; j++ {
		var s float64
		for k := m.P[j]; k < m.P[j+1]; k++ {
			s += m.X[k] * x[m.I[k]]
		}
		y[j] += s
	}
}

// ColInfNorms stores the ∞-norm of each column into out.
func (m *CSC) ColInfNorms(out []float64) {
	for j := 0; j < m.Cols; j++ {
		v := 0.0
		for k := m.P[j]; k < m.P[j+1]; k++ {
			if a := math.Abs(m.X[k]); a > v {
				v = a
			}
		}
		out[j] = v
	}
}

// RowInfNorms stores the ∞-norm of each row into out, which must be zeroed
// or pre-loaded by the caller (entries only ever grow).
func (m *CSC) RowInfNorms(out []float64) {
	for k, r := range m.I {
		if a := math.Abs(m.X[k]); a > out[r] {
			out[r] = a
		}
	}
}

// ScaleRows rescales row i by d[i] in place.
func (m *CSC) ScaleRows(d []float64) {
	for k, r := range m.I {
		m.X[k] *= d[r]
	}
}

// ScaleCols rescales column j by d[j] in place.
func (m *CSC) ScaleCols(d []float64) {
	for j := 0; j < m.Cols; j++ {
		dj := d[j]
		for k := m.P[j]; k < m.P[j+1]; k++ {
			m.X[k] *= dj
		}
	}
}

// Scale multiplies every entry by c.
func (m *CSC) Scale(c float64) {
	for k := range m.X {
		m.X[k] *= c
	}
}

// QuadForm evaluates xᵀ·A·x without allocating.
func (m *CSC) QuadForm(x []float64) float64 {
	var q float64
	for j := 0; j < m.Cols; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		for k := m.P[j]; k < m.P[j+1]; k++ {
			q += x[m.I[k]] * m.X[k] * xj
		}
	}
	return q
}

// Builder accumulates triplets and assembles them into a CSC matrix.
// Duplicate entries are summed.
type Builder struct {
	rows, cols int
	ri, ci     []int
	vx         []float64
}

// NewBuilder creates a triplet accumulator for a rows×cols matrix.
func NewBuilder(rows, cols int) *Builder {
	return &Builder{rows: rows, cols: cols}
}

// Add records entry (i, j) += v.
func (b *Builder) Add(i, j int, v float64) {
	b.ri = append(b.ri, i)
	b.ci = append(b.ci, j)
	b.vx = append(b.vx, v)
}

// Build assembles the accumulated triplets, summing duplicates.
func (b *Builder) Build() (*CSC, error) {
	for k, r := range b.ri {
		if r < 0 || r >= b.rows || b.ci[k] < 0 || b.ci[k] >= b.cols {
			return nil, ErrIndex
		}
	}
	// Count column occupancy, then bucket triplets column by column.
	count := make([]int, b.cols+1)
	for _, c := range b.ci {
		count[c+1]++
	}
	for j := 0; j < b.cols; j++ {
		count[j+1] += count[j]
	}
	next := make([]int, b.cols)
	copy(next, count[:b.cols])
	ri := make([]int, len(b.ri))
	vx := make([]float64, len(b.vx))
	for k, c := range b.ci {
		ri[next[c]] = b.ri[k]
		vx[next[c]] = b.vx[k]
		next[c]++
	}
	// Sort rows inside each column (insertion sort, columns are short)
	// and merge duplicates.
	p := make([]int, b.cols+1)
	outI := ri[:0]
	outX := vx[:0]
	tmpI := make([]int, 0, 16)
	tmpX := make([]float64, 0, 16)
	pos := 0
	for j := 0; j < b.cols; j++ {
		lo, hi := count[j], count[j+1]
		tmpI = append(tmpI[:0], ri[lo:hi]...)
		tmpX = append(tmpX[:0], vx[lo:hi]...)
		for a := 1; a < len(tmpI); a++ {
			ir, xr := tmpI[a], tmpX[a]
			c := a - 1
			for c >= 0 && tmpI[c] > ir {
				tmpI[c+1], tmpX[c+1] = tmpI[c], tmpX[c]
				c--
			}
			tmpI[c+1], tmpX[c+1] = ir, xr
		}
		for a := 0; a < len(tmpI); a++ {
			if pos > p[j] && outI[pos-1] == tmpI[a] {
				outX[pos-1] += tmpX[a]
				continue
			}
			outI = append(outI[:pos], tmpI[a])
			outX = append(outX[:pos], tmpX[a])
			pos++
		}
		p[j+1] = pos
	}
	return &CSC{Rows: b.rows, Cols: b.cols, P: p, I: outI[:pos], X: outX[:pos]}, nil
}
