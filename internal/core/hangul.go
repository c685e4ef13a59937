package core

import "strings"

// Hangul chosung (initial consonant) extraction for phonetic-initial
// search: typing "ㄱㅁㅅ" finds "김민수".

var chosung = []rune{
	'ㄱ', 'ㄲ', 'ㄴ', 'ㄷ', 'ㄸ', 'ㄹ', 'ㅁ', 'ㅂ', 'ㅃ', 'ㅅ', 'ㅆ',
	'ㅇ', 'ㅈ', 'ㅉ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

const (
	hangulBase      = 0xAC00 // '가'
	hangulEnd       = 0xD7A3 // '힣'
	runesPerChosung = 588    // 21 medials x 28 finals
)

// Chosung replaces every Hangul syllable with its leading consonant.
// Runes outside the syllable block pass through unchanged, so mixed or
// non-Korean text degrades to literal comparison.
func Chosung(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= hangulBase && r <= hangulEnd {
			b.WriteRune(chosung[(r-hangulBase)/runesPerChosung])
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MatchHangul reports whether target matches query either as a
// case-insensitive substring or by chosung sequence. An empty query
// matches everything; an empty target matches nothing. There is no
// fuzziness beyond that: exact substring or exact initial sequence.
func MatchHangul(target, query string) bool {
	if query == "" {
		return true
	}
	if target == "" {
		return false
	}

	t := strings.ToLower(target)
	q := strings.ToLower(query)
	if strings.Contains(t, q) {
		return true
	}
	return strings.Contains(Chosung(t), q)
}
