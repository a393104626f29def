package sweep

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/benchtool/benchtool/internal/cfg"
	"github.com/benchtool/benchtool/internal/common/bencherrors"
)

// Spec is the parameter space of a sweep. Nodes is crossed with the threads and
// ranks_per_node lists, which are paired by index.
type Spec struct {
	Nodes        []string
	Threads      []string
	RanksPerNode []string
}

// SpecFromRecord reads the sweep lists from the [runtime] section of rec.
func SpecFromRecord(rec *cfg.Record) (Spec, error) {
	view, err := rec.RuntimeView()
	if err != nil {
		return Spec{}, errors.WithStack(&bencherrors.ErrConfiguration{
			Key:     cfg.SectionRuntime,
			Message: err.Error(),
		})
	}
	spec := Spec{
		Nodes:        view.Nodes,
		Threads:      view.Threads,
		RanksPerNode: view.RanksPerNode,
	}
	return spec, spec.Validate()
}

// Validate checks that the lists are non-empty, that threads and ranks_per_node pair up,
// and that every node count is a positive integer.
func (s Spec) Validate() error {
	if len(s.Nodes) == 0 {
		return errors.WithStack(&bencherrors.ErrConfiguration{Key: "nodes", Message: "at least one node count is required"})
	}
	if len(s.Threads) == 0 {
		return errors.WithStack(&bencherrors.ErrConfiguration{Key: "threads", Message: "at least one thread count is required"})
	}
	if len(s.Threads) != len(s.RanksPerNode) {
		return errors.WithStack(&bencherrors.ErrConfiguration{
			Key: "ranks_per_node",
			Message: fmt.Sprintf(
				"threads has %d entries but ranks_per_node has %d; they are paired by position",
				len(s.Threads), len(s.RanksPerNode)),
		})
	}
	for _, n := range s.Nodes {
		if v, err := strconv.Atoi(n); err != nil || v < 1 {
			return errors.WithStack(&bencherrors.ErrConfiguration{
				Key:     "nodes",
				Value:   n,
				Message: "node counts must be positive integers",
			})
		}
	}
	return nil
}

// Size is the number of points in the sweep.
func (s Spec) Size() int {
	return len(s.Nodes) * len(s.Threads)
}

// Point is one combination of the sweep lists.
type Point struct {
	// Index is the 0-based position in node-major order.
	Index        int
	Total        int
	Nodes        string
	Threads      string
	RanksPerNode string
}

// Progress returns the 1-based position of p, e.g. "script 3 of 8".
func (p Point) Progress() string {
	return fmt.Sprintf("script %d of %d", p.Index+1, p.Total)
}

// Points enumerates the sweep, node counts in the outer loop and thread/rank pairs in the
// inner loop, preserving the order of each list.
func (s Spec) Points() []Point {
	total := s.Size()
	points := make([]Point, 0, total)
	for _, n := range s.Nodes {
		for i := range s.Threads {
			points = append(points, Point{
				Index:        len(points),
				Total:        total,
				Nodes:        n,
				Threads:      s.Threads[i],
				RanksPerNode: s.RanksPerNode[i],
			})
		}
	}
	return points
}
