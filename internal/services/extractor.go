package services

import (
	"regexp"
	"sort"
	"strconv"
)

var (
	// "Fix login #123"
	hashRefPattern = regexp.MustCompile(`#(\d+)`)
	// "feature/123-login", "bugfix_123_fix"
	branchRefPattern = regexp.MustCompile(`[-_/](\d+)`)
)

type idMatch struct {
	pos int
	id  int
}

// ExtractIssueIDs returns the issue IDs referenced in text, deduplicated and
// ordered by first appearance. Digit runs are matched greedily, so a longer
// number is never split into shorter IDs.
func ExtractIssueIDs(text string) []int {
	var matches []idMatch
	for _, re := range []*regexp.Regexp{hashRefPattern, branchRefPattern} {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			start, end := loc[2], loc[3]
			id, err := strconv.Atoi(text[start:end])
			if err != nil || id <= 0 {
				continue
			}
			matches = append(matches, idMatch{pos: start, id: id})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].pos < matches[j].pos
	})

	ids := make([]int, 0, len(matches))
	seen := make(map[int]struct{}, len(matches))
	for _, m := range matches {
		if _, ok := seen[m.id]; ok {
			continue
		}
		seen[m.id] = struct{}{}
		ids = append(ids, m.id)
	}
	return ids
}
