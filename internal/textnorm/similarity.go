package textnorm

import (
	"sort"
	"strings"
)

// Ratio returns the longest-matching-block similarity of a and b in [0,1]:
// 2*M/T where M is the number of runes in matching blocks found by
// recursively taking the longest common substring, and T the total length.
// Ties pick the earliest match in a, so Ratio(a, b) may differ from Ratio(b, a).
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchingRunes(ra, rb)) / float64(total)
}

// matchingRunes sums the sizes of all matching blocks.
func matchingRunes(a, b []rune) int {
	type span struct{ alo, ahi, blo, bhi int }

	matched := 0
	queue := []span{{0, len(a), 0, len(b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := longestMatch(a, b, s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longestMatch finds the longest common block in a[alo:ahi] and b[blo:bhi].
// Ties resolve to the block starting earliest in a, then earliest in b.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (besti, bestj, bestk int) {
	besti, bestj = alo, blo
	prev := make([]int, bhi-blo+1)
	cur := make([]int, bhi-blo+1)

	for i := alo; i < ahi; i++ {
		for j := blo; j < bhi; j++ {
			idx := j - blo + 1
			if a[i] != b[j] {
				cur[idx] = 0
				continue
			}
			cur[idx] = prev[idx-1] + 1
			if k := cur[idx]; k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		prev, cur = cur, prev
	}
	return besti, bestj, bestk
}

// TokenSetRatio compares the token sets of a and b, ignoring order and
// duplicates. Returns 0 when either side has no tokens.
func TokenSetRatio(a, b string) float64 {
	ta, tb := uniqueSorted(Tokens(a)), uniqueSorted(Tokens(b))
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inB := make(map[string]bool, len(tb))
	for _, t := range tb {
		inB[t] = true
	}
	inA := make(map[string]bool, len(ta))
	for _, t := range ta {
		inA[t] = true
	}

	var common, onlyA, onlyB []string
	for _, t := range ta {
		if inB[t] {
			common = append(common, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for _, t := range tb {
		if !inA[t] {
			onlyB = append(onlyB, t)
		}
	}

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	return max(Ratio(base, withA), Ratio(base, withB), Ratio(withA, withB))
}

func uniqueSorted(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
