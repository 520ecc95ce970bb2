// Package atsp holds the problem data shared by every search component: the
// immutable asymmetric cost matrix and the tour permutation worked on by the
// explorers.
package atsp

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// MinDimension is the smallest instance the search engine accepts.
const MinDimension = 3

// ErrInvalidInstance is returned when a cost matrix cannot form an instance.
var ErrInvalidInstance = errors.New("atsp: invalid instance")

// Instance is an n×n directed cost matrix. It is read-only once built and may be
// shared by pointer between concurrent runs.
type Instance struct {
	Name             string
	Comment          string
	EdgeWeightType   string
	EdgeWeightFormat string

	dimension int
	matrix    []int
	symmetric bool
}

// NewInstance copies rows into a new instance. Every row must have exactly
// len(rows) entries and there must be at least MinDimension rows.
func NewInstance(name string, rows [][]int) (*Instance, error) {
	n := len(rows)
	if n < MinDimension {
		return nil, fmt.Errorf("%w: dimension must be >= %d (got %d)", ErrInvalidInstance, MinDimension, n)
	}
	flat := make([]int, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrInvalidInstance, i, len(row), n)
		}
		flat = append(flat, row...)
	}
	return newInstance(name, n, flat), nil
}

// NewInstanceFlat builds an instance from a row-major slice of n*n values.
// The slice is copied.
func NewInstanceFlat(name string, n int, values []int) (*Instance, error) {
	if n < MinDimension {
		return nil, fmt.Errorf("%w: dimension must be >= %d (got %d)", ErrInvalidInstance, MinDimension, n)
	}
	if len(values) != n*n {
		return nil, fmt.Errorf("%w: expected %d matrix values for dimension %d (got %d)", ErrInvalidInstance, n*n, n, len(values))
	}
	flat := make([]int, len(values))
	copy(flat, values)
	return newInstance(name, n, flat), nil
}

func newInstance(name string, n int, flat []int) *Instance {
	inst := &Instance{
		Name:      name,
		dimension: n,
		matrix:    flat,
		symmetric: true,
	}
	for i := 0; i < n && inst.symmetric; i++ {
		for j := i + 1; j < n; j++ {
			if flat[i*n+j] != flat[j*n+i] {
				inst.symmetric = false
				break
			}
		}
	}
	return inst
}

// Dimension returns the number of nodes.
func (inst *Instance) Dimension() int {
	return inst.dimension
}

// At returns the cost of the directed edge from -> to.
func (inst *Instance) At(from, to int) int {
	return inst.matrix[from*inst.dimension+to]
}

// Symmetric reports whether At(i,j) == At(j,i) for every pair.
func (inst *Instance) Symmetric() bool {
	return inst.symmetric
}

// Row returns a copy of the outgoing costs of node i.
func (inst *Instance) Row(i int) []int {
	row := make([]int, inst.dimension)
	copy(row, inst.matrix[i*inst.dimension:(i+1)*inst.dimension])
	return row
}

// Cost is the full cyclic cost of tour. It is O(n) and is kept out of the
// search loop; tour must have Dimension() entries.
func (inst *Instance) Cost(tour Tour) int {
	n := len(tour)
	cost := 0
	for k := 0; k < n; k++ {
		cost += inst.At(tour[k], tour[(k+1)%n])
	}
	return cost
}

// Describe writes the instance header and, optionally, the matrix.
func (inst *Instance) Describe(w io.Writer, withMatrix bool) {
	fmt.Fprintf(w, "Name: %s\n", inst.Name)
	fmt.Fprintf(w, "Comment: %s\n", inst.Comment)
	fmt.Fprintf(w, "Dimension: %d\n", inst.dimension)
	fmt.Fprintf(w, "Edge Weight Type: %s\n", inst.EdgeWeightType)
	fmt.Fprintf(w, "Edge Weight Format: %s\n", inst.EdgeWeightFormat)
	if !withMatrix {
		return
	}
	fmt.Fprintln(w, "\nMatrix:")
	cells := make([]string, inst.dimension)
	for i := 0; i < inst.dimension; i++ {
		for j := 0; j < inst.dimension; j++ {
			cells[j] = fmt.Sprintf("%4d", inst.At(i, j))
		}
		fmt.Fprintln(w, strings.Join(cells, " "))
	}
}
