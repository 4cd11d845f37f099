// Package wer computes word error rate between a reference text and a
// hypothesis text.
//
// Both texts are normalized into word sequences, aligned with a word-level
// Levenshtein table and scored as (substitutions + insertions + deletions)
// divided by the number of reference words. Every function in this package
// is a pure function of its arguments and is safe for concurrent use.
package wer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize turns raw text into a word sequence: lowercased, punctuation
// stripped, whitespace collapsed. Empty or whitespace-only input yields an
// empty (nil) sequence.
func Normalize(text string) []string {
	if text == "" {
		return nil
	}

	text = strings.ToLower(norm.NFC.String(text))
	text = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case isWordRune(r):
			return r
		default:
			return -1
		}
	}, text)

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return words
}

// isWordRune reports whether r survives punctuation stripping. Marks are kept
// so scripts with combining vowel signs are not split mid-word.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
