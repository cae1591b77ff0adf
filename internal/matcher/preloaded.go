package matcher

import "sort"

// MatchPreloaded implements the preloaded-reply lookup (§4.4.1): exact hit
// first, then a longest-first prefix scan with a length-bound tolerance.
func MatchPreloaded(cfg Config, text string) (reply string, ok bool) {
	normalized := Normalize(text)

	if reply, ok := cfg.Preloaded[normalized]; ok {
		return reply, true
	}

	prefixes := make([]string, len(cfg.Prefixes))
	copy(prefixes, cfg.Prefixes)
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })

	for _, prefix := range prefixes {
		if !hasPrefixWithinBound(normalized, prefix) {
			continue
		}
		if reply, ok := cfg.PreloadedByPrefix[prefix]; ok {
			return reply, true
		}
	}

	return "", false
}

// hasPrefixWithinBound implements the bound rule: normalized must begin
// with prefix and len(normalized) <= len(prefix) + bound, where bound is 20
// for prefixes longer than 15 chars, else 10.
func hasPrefixWithinBound(normalized, prefix string) bool {
	if len(normalized) < len(prefix) || normalized[:len(prefix)] != prefix {
		return false
	}
	bound := 10
	if len(prefix) > 15 {
		bound = 20
	}
	return len(normalized) <= len(prefix)+bound
}
