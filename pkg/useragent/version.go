package useragent

import (
	"strconv"
	"strings"
)

// CompareVersions compares dotted version strings numerically, segment by segment.
// Missing segments count as zero and any non-digit suffix of a segment is ignored,
// so "100" == "100.0.0" and "99.0" < "100.0.4896.75".
// Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")

	n := max(len(as), len(bs))
	for i := range n {
		av, bv := segment(as, i), segment(bs, i)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	}
	return 0
}

func segment(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	s := parts[i]
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
