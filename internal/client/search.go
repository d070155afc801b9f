package client

import (
	"sort"
	"strings"
)

// Search keeps uploads whose name contains term, ignoring case. An empty term
// keeps everything.
func Search(uploads []Upload, term string) []Upload {
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]Upload, 0, len(uploads))
	for _, u := range uploads {
		if term == "" || strings.Contains(strings.ToLower(u.Name), term) {
			out = append(out, u)
		}
	}
	return out
}

// SortNewest orders uploads by creation time, newest first.
func SortNewest(uploads []Upload) {
	sort.SliceStable(uploads, func(i, j int) bool {
		return uploads[i].CreatedAt.After(uploads[j].CreatedAt)
	})
}
