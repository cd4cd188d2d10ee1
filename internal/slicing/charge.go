package slicing

import "github.com/kiliakis/PyHEADTAIL/internal/stats"

// sliceEqualCharge gives every slice q0/NSlices particles; the q0 % NSlices
// remainder goes one each to slices picked at random, so that no slice is
// favored over many updates. Interior edges lie halfway between the last
// particle of a slice and the first of the next.
func (s *SliceSet) sliceEqualCharge(z []float64) {
	s.countCuts(z)

	q0 := len(z) - s.NCutTail - s.NCutHead
	base, extra := q0/s.NSlices, q0%s.NSlices
	for i := range s.NMacroparticles {
		s.NMacroparticles[i] = base
	}
	if extra > 0 {
		for _, i := range s.rng.Perm(s.NSlices)[:extra] {
			s.NMacroparticles[i]++
		}
	}

	for i, sum := range stats.CumSum(s.NMacroparticles) {
		s.ZIndex[i] = s.NCutTail + sum
	}

	s.ZBins[0], s.ZBins[s.NSlices] = s.ZCutTail, s.ZCutHead
	for i := 1; i < s.NSlices; i++ {
		s.ZBins[i] = s.boundaryEdge(z, s.ZIndex[i])
	}
	copy(s.ZCenters, stats.Midpoints(s.ZBins))
}

// boundaryEdge is the midpoint of the z values on either side of index k,
// kept inside the cut window.
func (s *SliceSet) boundaryEdge(z []float64, k int) float64 {
	if len(z) == 0 {
		return s.ZCutTail
	}
	lo := min(max(k-1, 0), len(z)-1)
	hi := min(max(k, 0), len(z)-1)
	edge := 0.5 * (z[lo] + z[hi])
	return min(max(edge, s.ZCutTail), s.ZCutHead)
}
