package normalize

import (
	"regexp"
	"strings"
)

// TitleDelimiter separates artist and track in display titles.
const TitleDelimiter = " - "

// DefaultNoiseTokens mark bracketed production annotations such as
// "(Official Music Video)" or "[MV]".
var DefaultNoiseTokens = []string{
	"official",
	"music video",
	"mv",
	"m/v",
	"lyric video",
	"lyrics",
	"audio",
	"visualizer",
	"performance video",
	"teaser",
	"4k",
	"hd",
}

var annotationPattern = regexp.MustCompile(`[(\[【]([^()\[\]【】]*)[)\]】]`)

// TitleDecomposer splits "<Artist> - <Track>" display titles and removes
// production annotations from the result.
type TitleDecomposer struct {
	tokens []string
}

// NewTitleDecomposer builds a decomposer that treats annotations containing
// any of tokens as noise. With no usable tokens, DefaultNoiseTokens apply.
func NewTitleDecomposer(tokens ...string) *TitleDecomposer {
	seen := make(map[string]bool, len(tokens))
	cleaned := make([]string, 0, len(tokens))

	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}

		seen[t] = true
		cleaned = append(cleaned, t)
	}

	if len(cleaned) == 0 {
		cleaned = append(cleaned, DefaultNoiseTokens...)
	}

	return &TitleDecomposer{tokens: cleaned}
}

// Decompose splits title at the first TitleDelimiter found past position 0.
// Without one, fallbackArtist (usually the channel name) becomes the artist and
// the whole title is the track.
func (d *TitleDecomposer) Decompose(title, fallbackArtist string) (artistName, songTitle string) {
	if idx := strings.Index(title, TitleDelimiter); idx > 0 {
		artist := d.Clean(title[:idx])
		if artist != "" {
			return artist, d.Clean(title[idx+len(TitleDelimiter):])
		}
	}

	return strings.TrimSpace(fallbackArtist), d.Clean(title)
}

// Clean strips noise annotations and a trailing "| <noise>" suffix. The result
// is "" only when the segment held nothing but noise annotations.
func (d *TitleDecomposer) Clean(segment string) string {
	original := collapseSpaces(segment)

	cleaned := annotationPattern.ReplaceAllStringFunc(original, func(m string) string {
		if sub := annotationPattern.FindStringSubmatch(m); sub != nil && d.isNoise(sub[1]) {
			return " "
		}

		return m
	})

	if idx := strings.LastIndex(cleaned, " | "); idx > 0 {
		if head := strings.TrimSpace(cleaned[:idx]); head != "" && d.isNoise(cleaned[idx+3:]) {
			cleaned = head
		}
	}

	return collapseSpaces(cleaned)
}

func (d *TitleDecomposer) isNoise(text string) bool {
	lower := strings.ToLower(text)

	for _, tok := range d.tokens {
		if containsToken(lower, tok) {
			return true
		}
	}

	return false
}

// containsToken matches tok only where it is not glued to ASCII letters or
// digits, so "mv" does not match "mvp".
func containsToken(s, tok string) bool {
	for start := 0; start < len(s); {
		i := strings.Index(s[start:], tok)
		if i < 0 {
			return false
		}

		i += start
		end := i + len(tok)

		if (i == 0 || !isASCIIAlnum(s[i-1])) && (end == len(s) || !isASCIIAlnum(s[end])) {
			return true
		}

		start = i + 1
	}

	return false
}

func isASCIIAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
