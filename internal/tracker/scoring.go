package tracker

import (
	"strings"

	"sauti/internal/wer"
)

var (
	swahiliPatterns = []string{
		"ni", "na", "wa", "ya", "za", "la", "ma", "ku", "mu", "ki", "vi", "mi",
		"hujambo", "sijambo", "asante", "karibu", "pole", "heshima",
	}

	medicalTerms = []string{
		"maumivu", "homa", "kikohozi", "kichefuchefu", "kuharisha", "tumbo",
		"kichwa", "mgongo", "uchungu", "dalili", "matibabu", "dawa", "chanjo",
		"afya", "hospitali", "daktari", "mgonjwa", "sababu", "suluhisho",
	}

	culturalTerms = []string{
		"asante", "pole", "hujambo", "sijambo", "karibu", "heshima", "utamaduni",
		"jamii", "familia", "mzee", "mtoto", "rafiki", "jirani",
	}

	insensitiveTerms = []string{"mbaya", "hafifu", "duni"}
)

// Substring heuristics; input is expected lowercased.

func swahiliAccuracy(input string) int {
	score := 70 + 3*countContained(input, swahiliPatterns)
	if len(input) > 20 {
		score += 5
	}
	if strings.Contains(input, "ni") || strings.Contains(input, "na") {
		score += 3
	}
	return min(100, score)
}

func medicalTerminology(input string) int {
	n := countContained(input, medicalTerms)
	score := 50 + 15*n
	if n > 1 {
		score += 10
	}
	if strings.Contains(input, "maumivu") || strings.Contains(input, "homa") {
		score += 5
	}
	return min(100, score)
}

func culturalSensitivity(input string) int {
	score := 60 + 8*countContained(input, culturalTerms)
	if strings.Contains(input, "asante") || strings.Contains(input, "pole") {
		score += 10
	}
	if strings.Contains(input, "hujambo") || strings.Contains(input, "sijambo") {
		score += 5
	}
	score -= 5 * countContained(input, insensitiveTerms)
	return max(0, min(100, score))
}

func countContained(input string, terms []string) int {
	n := 0
	for _, t := range terms {
		if strings.Contains(input, t) {
			n++
		}
	}
	return n
}

type referenceRule struct {
	keywords  []string
	reference string
}

var referenceRules = []referenceRule{
	{keywords: []string{"maumivu", "uchungu"}, reference: "nina maumivu ya tumbo"},
	{keywords: []string{"homa", "joto"}, reference: "nina homa na joto la mwili"},
	{keywords: []string{"tumbo", "kichwa"}, reference: "tumbo linauma sana"},
	{keywords: []string{"asante", "hujambo"}, reference: "asante sana hujambo"},
}

const defaultReference = "jina langu ni john nina tatizo la afya"

// Reference picks the phrase a participant is expected to have said, keyed
// on whole-word matches in input. It stands in for a reference transcript
// when none is available.
func Reference(input string) string {
	words := make(map[string]bool)
	for _, w := range wer.Normalize(input) {
		words[w] = true
	}
	for _, rule := range referenceRules {
		for _, k := range rule.keywords {
			if words[k] {
				return rule.reference
			}
		}
	}
	return defaultReference
}
