package evaluation

// relevantSet builds the relevance lookup for one ground-truth entry.
// Matching is exact and case-sensitive: catalog names are canonical and
// ground truth is authored against them.
func relevantSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// recallAtK is the fraction of relevant names present anywhere in the
// recommended list. Zero when nothing is relevant.
func recallAtK(recommended []string, relevant map[string]bool, totalRelevant int) float64 {
	if totalRelevant == 0 {
		return 0
	}
	found := 0
	for _, name := range recommended {
		if relevant[name] {
			found++
		}
	}
	return float64(found) / float64(totalRelevant)
}

// precisionLadder computes precision@i for every prefix of the recommended
// list, i = 1..len(recommended).
func precisionLadder(recommended []string, relevant map[string]bool) []float64 {
	ladder := make([]float64, len(recommended))
	hits := 0
	for i, name := range recommended {
		if relevant[name] {
			hits++
		}
		ladder[i] = float64(hits) / float64(i+1)
	}
	return ladder
}

// averagePrecision sums precision at each position holding a relevant item
// and divides by the total number of relevant items, so missing items pull
// the score down. Zero when nothing is relevant.
func averagePrecision(recommended []string, relevant map[string]bool, totalRelevant int) float64 {
	if totalRelevant == 0 {
		return 0
	}
	sum := 0.0
	hits := 0
	for i, name := range recommended {
		if relevant[name] {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	return sum / float64(totalRelevant)
}
