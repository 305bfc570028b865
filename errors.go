/*
Copyright © 2026 the gridsplit authors.
This file is part of gridsplit.

gridsplit is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

gridsplit is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with gridsplit.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridsplit

import (
	"errors"
	"fmt"
)

// These are the error categories returned by the splitting functions.
// Use errors.Is to test which category an error belongs to.
var (
	// ErrInvalidGeometry is returned for empty, degenerate, or
	// unsupported geometries.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrOutOfBounds is returned when a cell index falls outside of the
	// grid and the caller has asked for out-of-bounds indices to be rejected.
	ErrOutOfBounds = errors.New("cell index out of bounds")

	// ErrTopology is returned when a polygon boundary is inconsistent
	// with the grid it is being split against.
	ErrTopology = errors.New("topology error")

	// ErrInvalidGrid is returned when a grid definition cannot be constructed.
	ErrInvalidGrid = errors.New("invalid grid definition")
)

// GeometryError describes an input geometry that cannot be processed.
type GeometryError struct {
	Op     string // the operation that was attempted
	Kind   Kind   // the kind of the offending geometry
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("gridsplit: %s: %v: %s", e.Op, e.Kind, e.Reason)
}

// Unwrap allows errors.Is(err, ErrInvalidGeometry).
func (e *GeometryError) Unwrap() error { return ErrInvalidGeometry }

func invalidGeometry(op string, k Kind, format string, a ...interface{}) error {
	return &GeometryError{Op: op, Kind: k, Reason: fmt.Sprintf(format, a...)}
}

// OutOfBoundsError is returned when a cell index lies outside of a grid.
type OutOfBoundsError struct {
	Cell          CellIndex
	Width, Height int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("gridsplit: cell (%d, %d) is outside of the %dx%d grid",
		e.Cell.I, e.Cell.J, e.Width, e.Height)
}

// Unwrap allows errors.Is(err, ErrOutOfBounds).
func (e *OutOfBoundsError) Unwrap() error { return ErrOutOfBounds }

// Axis identifies a family of grid lines.
type Axis int

const (
	// Vertical grid lines have a constant column index i.
	Vertical Axis = iota
	// Horizontal grid lines have a constant row index j.
	Horizontal
)

func (a Axis) String() string {
	if a == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// TopologyError is returned when the boundary of a polygon crosses a grid
// line in a way that cannot be paired up, or when face reconstruction
// cannot close a ring. Axis and Line identify the grid line, if any.
type TopologyError struct {
	Axis   Axis
	Line   int
	Reason string
}

// msgOddCrossings is the reason given when a ring crosses a grid line an odd
// number of times.
const msgOddCrossings = "expected even number of crossings on gridline"

func (e *TopologyError) Error() string {
	if e.Reason == msgOddCrossings {
		return fmt.Sprintf("gridsplit: %s (%v gridline %d)", e.Reason, e.Axis, e.Line)
	}
	return "gridsplit: " + e.Reason
}

// Unwrap allows errors.Is(err, ErrTopology).
func (e *TopologyError) Unwrap() error { return ErrTopology }

// FeatureError records the failure of one feature in a batch.
type FeatureError struct {
	Index int // position of the feature in the batch
	Err   error
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("gridsplit: feature %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *FeatureError) Unwrap() error { return e.Err }
