package schema

import "sort"

// damerauLevenshtein computes the (unrestricted) Damerau-Levenshtein edit
// distance between a and b: insertions, deletions, substitutions and
// adjacent transpositions, with further edits allowed between transposed
// characters. No library in the example corpus implements
// transposition-aware Damerau-Levenshtein (the one Levenshtein library
// pulled in elsewhere in the pack only does the simple insert/delete/
// substitute variant), so this is hand-rolled per spec §4.C / §8 property
// 13 ("user" vs "users" must be distance 1, not something a
// substitution-only metric would also get right, but a pure transposition
// case like "usres" vs "users" needs the Damerau extension to stay at 1).
func damerauLevenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)

	// d is (la+2) x (lb+2) per the classic Damerau-Levenshtein algorithm
	// with an extra row/column sentinel to detect transpositions cleanly.
	maxDist := la + lb
	d := make([][]int, la+2)
	for i := range d {
		d[i] = make([]int, lb+2)
	}
	d[0][0] = maxDist
	for i := 0; i <= la; i++ {
		d[i+1][0] = maxDist
		d[i+1][1] = i
	}
	for j := 0; j <= lb; j++ {
		d[0][j+1] = maxDist
		d[1][j+1] = j
	}

	lastRow := map[rune]int{}
	for i := 1; i <= la; i++ {
		lastCol := 0
		for j := 1; j <= lb; j++ {
			i1 := lastRow[rb[j-1]]
			j1 := lastCol
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
				lastCol = j
			}
			del := d[i][j+1] + 1
			ins := d[i+1][j] + 1
			sub := d[i][j] + cost
			trans := d[i1][j1] + (i-i1-1) + 1 + (j-j1-1)
			best := del
			if ins < best {
				best = ins
			}
			if sub < best {
				best = sub
			}
			if trans < best {
				best = trans
			}
			d[i+1][j+1] = best
		}
		lastRow[ra[i-1]] = i
	}
	return d[la+1][lb+1]
}

// suggest returns up to 3 candidates within Damerau-Levenshtein distance
// <= 2 of target, closest first, ties broken lexicographically (spec
// §4.C, §8 property 13).
func suggest(target string, candidates []string) []string {
	type scored struct {
		name string
		dist int
	}
	var matches []scored
	for _, c := range candidates {
		d := damerauLevenshtein(target, c)
		if d <= 2 {
			matches = append(matches, scored{c, d})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].dist != matches[j].dist {
			return matches[i].dist < matches[j].dist
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) > 3 {
		matches = matches[:3]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}
