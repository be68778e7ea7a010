package history

import "github.com/sahilm/fuzzy"

// searchSource adapts records to the fuzzy matcher. Matching runs over
// the display title with the topic as fallback, which is what users
// remember about past generations.
type searchSource []Record

func (s searchSource) String(i int) string {
	if s[i].Title != "" {
		return s[i].Title
	}
	return s[i].Topic
}

func (s searchSource) Len() int {
	return len(s)
}

// Search filters records by fuzzy-matching the query against titles,
// best matches first. An empty query returns the input unchanged.
func Search(records []Record, query string) []Record {
	if query == "" {
		return records
	}
	matches := fuzzy.FindFrom(query, searchSource(records))
	out := make([]Record, 0, len(matches))
	for _, m := range matches {
		out = append(out, records[m.Index])
	}
	return out
}
