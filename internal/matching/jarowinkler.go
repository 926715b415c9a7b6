// Package matching implements the tiered string/numeric comparison used by
// both the read-through cache (C8) and the validation engine (C10):
// exact, then normalized, then Jaro-Winkler fuzzy.
//
// No third-party Jaro-Winkler library surfaced anywhere in the retrieved
// corpus; this is a direct adaptation of the hand-rolled scorer found in
// one of the example repositories' entity-matching package, trimmed to the
// two functions this domain needs.
package matching

// JaroWinkler returns the Jaro-Winkler similarity of a and b in [0,1].
func JaroWinkler(a, b string) float64 {
	jaro := Jaro(a, b)
	if jaro <= 0 {
		return jaro
	}

	const scalingFactor = 0.1
	const maxPrefix = 4

	prefix := 0
	ra, rb := []rune(a), []rune(b)
	limit := len(ra)
	if len(rb) < limit {
		limit = len(rb)
	}
	if limit > maxPrefix {
		limit = maxPrefix
	}
	for i := 0; i < limit; i++ {
		if ra[i] != rb[i] {
			break
		}
		prefix++
	}

	return jaro + float64(prefix)*scalingFactor*(1-jaro)
}

// Jaro returns the classic Jaro similarity of a and b in [0,1].
func Jaro(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 && lb == 0 {
		return 1.0
	}
	if la == 0 || lb == 0 {
		return 0.0
	}

	matchDist := la
	if lb > matchDist {
		matchDist = lb
	}
	matchDist = matchDist/2 - 1
	if matchDist < 0 {
		matchDist = 0
	}

	aMatched := make([]bool, la)
	bMatched := make([]bool, lb)

	matches := 0
	for i := 0; i < la; i++ {
		start := i - matchDist
		if start < 0 {
			start = 0
		}
		end := i + matchDist + 1
		if end > lb {
			end = lb
		}
		for j := start; j < end; j++ {
			if bMatched[j] || ra[i] != rb[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < la; i++ {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if ra[i] != rb[k] {
			transpositions++
		}
		k++
	}
	transpositions /= 2

	m := float64(matches)
	return (m/float64(la) + m/float64(lb) + (m-float64(transpositions))/m) / 3.0
}
