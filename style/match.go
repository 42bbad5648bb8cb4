package style

// Match is contiguous common run: a[A:A+Size] == b[B:B+Size].
type Match struct {
	A, B, Size int
}

// LongestMatch finds the longest contiguous run common to a and b. Among
// runs of equal length the one starting earliest in a wins, then the one
// starting earliest in b. Zero Size means nothing matched.
//
// Only one run is ever reported. Extracted text is expected to be near
// verbatim excerpt of the page, so a single anchor is enough and disjoint
// pieces are not reconciled.
func LongestMatch(a, b []rune) Match {
	var best Match
	if len(a) == 0 || len(b) == 0 {
		return best
	}

	// prev[j+1] is length of common suffix of a[:i] and b[:j+1]
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := range a {
		for j := range b {
			if a[i] != b[j] {
				cur[j+1] = 0
				continue
			}
			k := prev[j] + 1
			cur[j+1] = k
			if k > best.Size {
				best = Match{A: i - k + 1, B: j - k + 1, Size: k}
			}
		}
		prev, cur = cur, prev
	}
	return best
}
