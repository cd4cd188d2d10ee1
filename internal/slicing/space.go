package slicing

// sliceEqualSpace splits the cut window into NSlices bins of equal width and
// counts the sorted live z values falling in each.
func (s *SliceSet) sliceEqualSpace(z []float64) {
	if !s.Static {
		s.setEvenEdges()
	}
	s.countCuts(z)

	for i := 0; i < s.NSlices; i++ {
		s.ZIndex[i] = lowerBound(z, s.ZBins[i])
	}
	// the head edge is closed, a particle on it stays in the last slice
	s.ZIndex[s.NSlices] = upperBound(z, s.ZBins[s.NSlices])
}
