package lib

import (
	"regexp"
	"strconv"
)

// photoAssetRe captures the 32-hex asset identifier shared by every
// resolution variant of one CDN photo.
var photoAssetRe = regexp.MustCompile(`/([a-f0-9]{32})-cc_ft_\d+\.(?:jpg|webp|png)`)

// photoResolutionRe captures the numeric size token embedded in a CDN photo URL.
var photoResolutionRe = regexp.MustCompile(`-cc_ft_(\d+)\.`)

// maxPhotoResolution is the largest size the photo CDN serves.
const maxPhotoResolution = 1536

// photoIdentity extracts the asset identifier from a CDN photo URL.
func photoIdentity(rawURL string) (string, bool) {
	m := photoAssetRe.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// photoResolution extracts the resolution token from a CDN photo URL.
// URLs without a parseable token rank lowest.
func photoResolution(rawURL string) int {
	m := photoResolutionRe.FindStringSubmatch(rawURL)
	if m == nil {
		return 0
	}
	size, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return size
}

// ResolveUnique collapses resolution variants of the same photo down to a
// single URL. Candidates carrying the same asset identifier form one group;
// everything else is keyed by its own URL, so exact duplicates collapse and
// unrelated URLs pass through untouched. Each group resolves to the member
// with the highest resolution token, first occurrence winning ties. Output
// order follows the first appearance of each group, making the result
// deterministic for a given input, and running the function over its own
// output changes nothing.
func ResolveUnique(candidates []string) []string {
	groups := make(map[string][]string, len(candidates))
	order := make([]string, 0, len(candidates))

	for _, candidate := range candidates {
		key := candidate
		if id, ok := photoIdentity(candidate); ok {
			key = id
		}
		members, seen := groups[key]
		if !seen {
			order = append(order, key)
		} else if key == candidate {
			continue // exact duplicate of a non-CDN URL
		}
		groups[key] = append(members, candidate)
	}

	resolved := make([]string, 0, len(order))
	for _, key := range order {
		resolved = append(resolved, selectHighestResolution(groups[key]))
	}
	return resolved
}

// selectHighestResolution picks the best variant out of one asset group.
func selectHighestResolution(urls []string) string {
	best := urls[0]
	bestSize := photoResolution(best)
	for _, u := range urls[1:] {
		if size := photoResolution(u); size > bestSize {
			best = u
			bestSize = size
		}
	}
	return best
}
