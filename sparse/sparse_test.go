// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderAssemblesSortedColumns(t *testing.T) {
	b := NewBuilder(3, 3)
	b.Add(2, 0, 3)
	b.Add(0, 0, 1)
	b.Add(1, 2, 5)
	b.Add(0, 0, 1) // duplicate, summed
	b.Add(2, 2, 6)

	m, err := b.Build()
	require.NoError(t, err)
	require.Equal(t, []int{0, 2, 2, 4}, m.P)
	require.Equal(t, []int{0, 2, 1, 2}, m.I)
	require.Equal(t, []float64{2, 3, 5, 6}, m.X)

	_, err = NewCSC(3, 3, m.P, m.I, m.X)
	require.NoError(t, err)
}

func TestBuilderRejectsOutOfRange(t *testing.T) {
	b := NewBuilder(2, 2)
	b.Add(2, 0, 1)
	_, err := b.Build()
	require.ErrorIs(t, err, ErrIndex)
}

func TestMulVec(t *testing.T) {
	// [1 0 2]
	// [0 3 0]
	m := FromDense(2, 3, []float64{1, 0, 2, 0, 3, 0})
	y := make([]float64, 2)
	m.MulVecAdd(y, []float64{1, 1, 1})
	require.Equal(t, []float64{3, 3}, y)

	yt := make([]float64, 3)
	m.MulTVecAdd(yt, []float64{1, 2})
	require.Equal(t, []float64{1, 6, 2}, yt)
}

func TestNorms(t *testing.T) {
	m := FromDense(2, 2, []float64{-4, 1, 2, -3})
	col := make([]float64, 2)
	m.ColInfNorms(col)
	require.Equal(t, []float64{4, 3}, col)

	row := make([]float64, 2)
	m.RowInfNorms(row)
	require.Equal(t, []float64{4, 3}, row)
}

func TestScaling(t *testing.T) {
	m := FromDense(2, 2, []float64{1, 2, 3, 4})
	m.ScaleRows([]float64{2, 1})
	m.ScaleCols([]float64{1, 10})
	// rows scaled first: [[2,4],[3,4]], then cols: [[2,40],[3,40]]
	y := make([]float64, 2)
	m.MulVecAdd(y, []float64{1, 1})
	require.Equal(t, []float64{42, 43}, y)
}

func TestQuadForm(t *testing.T) {
	p := FromDense(2, 2, []float64{2, 1, 1, 2})
	require.InDelta(t, 6.0, p.QuadForm([]float64{1, 1}), 1e-15)
}
