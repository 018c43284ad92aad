package services

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxKeywords      = 5
	minKeywordLength = 4
)

// englishStopwords are dropped from keyword extraction. Tokenisation itself
// is locale-neutral; only this list is English.
var englishStopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		about above after again against also because been before being below
		between both could does doing down during each even every from further
		have having here hers herself himself into itself just like make more
		most much must myself only other ours ourselves over same should some
		such than that their theirs them themselves then there these they this
		those through under until very want were what when where which while
		whom will with would your yours yourself yourselves`) {
		englishStopwords[w] = struct{}{}
	}
}

// ExtractKeywords returns the most frequent caption words of at least four
// letters, folded, excluding stopwords and hashtags. Ties keep first occurrence.
func ExtractKeywords(caption string, limit int) []string {
	counts := map[string]int{}
	var order []string

	for _, field := range strings.Fields(caption) {
		if strings.HasPrefix(field, "#") || strings.HasPrefix(field, "@") {
			continue
		}
		for _, token := range strings.FieldsFunc(field, func(r rune) bool { return !unicode.IsLetter(r) }) {
			word := fold(token)
			if utf8.RuneCountInString(word) < minKeywordLength {
				continue
			}
			if _, stop := englishStopwords[word]; stop {
				continue
			}
			if counts[word] == 0 {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// CaptionHashtags returns the #tags written inside a caption, normalised
func CaptionHashtags(caption string) []string {
	var tags []string
	for _, field := range strings.Fields(caption) {
		if !strings.HasPrefix(field, "#") {
			continue
		}
		tag := strings.TrimRightFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if tag = NormalizeHashtag(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// AutoTagNames combines declared hashtags, caption hashtags and keywords,
// deduplicated in that order
func AutoTagNames(hashtags []string, caption string) []string {
	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	for _, tag := range hashtags {
		add(NormalizeHashtag(tag))
	}
	for _, tag := range CaptionHashtags(caption) {
		add(tag)
	}
	for _, word := range ExtractKeywords(caption, maxKeywords) {
		add(word)
	}
	return names
}
