package beam

import (
	"cmp"
	"slices"
)

// SortByLongitudinalPosition reorders every particle array in place so that
// live particles come first in ascending z and lost particles (ID == 0) form
// the tail. Ties keep their previous relative order, which makes the sort
// idempotent. NLost is recomputed first.
//
// Slicing relies on this order: the live prefix Z[:NAlive()] is sorted.
func (e *Ensemble) SortByLongitudinalPosition() {
	e.CountLost()

	order := make([]int, e.Len())
	for i := range order {
		order[i] = i
	}
	if e.NLost > 0 {
		slices.SortStableFunc(order, func(a, b int) int {
			if lostA, lostB := e.ID[a] == 0, e.ID[b] == 0; lostA != lostB {
				if lostA {
					return 1
				}
				return -1
			}
			return cmp.Compare(e.Z[a], e.Z[b])
		})
	} else {
		slices.SortStableFunc(order, func(a, b int) int {
			return cmp.Compare(e.Z[a], e.Z[b])
		})
	}
	e.permute(order)
}

// permute applies order to all seven arrays at once, so that particle
// order[i] ends up in slot i.
func (e *Ensemble) permute(order []int) {
	buf := make([]float64, len(order))
	for _, arr := range e.coordinates() {
		for i, j := range order {
			buf[i] = arr[j]
		}
		copy(arr, buf)
	}
	ids := make([]int, len(order))
	for i, j := range order {
		ids[i] = e.ID[j]
	}
	copy(e.ID, ids)
}

// IsSorted reports whether the arrays are in the order produced by
// SortByLongitudinalPosition.
func (e *Ensemble) IsSorted() bool {
	seenLost := false
	for i, id := range e.ID {
		if id == 0 {
			seenLost = true
			continue
		}
		if seenLost {
			return false
		}
		if i > 0 && e.Z[i] < e.Z[i-1] {
			return false
		}
	}
	return true
}
