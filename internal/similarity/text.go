// Package similarity scores how alike two lost/found reports are along a
// single dimension. Every scorer returns a value in [0, 1] and returns 0 when
// either side is missing.
package similarity

import (
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// Text compares two free-text fields with a TF-IDF weighted dot product over
// the two-document corpus formed by the pair.
func Text(a, b string) float64 {
	na, nb := normalize(a), normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	ta, tb := Terms(na), Terms(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	// Texts differing only in case, punctuation or stopwords are identical.
	if slices.Equal(ta, tb) {
		return 1
	}

	tfA, tfB := termFrequencies(ta), termFrequencies(tb)

	// Only terms present in both documents contribute to the dot product,
	// and such terms always have df = 2.
	const docs = 2.0
	idfShared := math.Log(1 + docs/2)

	var sum float64
	for term, fa := range tfA {
		fb, ok := tfB[term]
		if !ok {
			continue
		}
		sum += (fa * idfShared) * (fb * idfShared)
	}
	return clamp(sum)
}

// Terms lowercases, tokenizes, drops stopwords and stems the text.
func Terms(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if stopwords[tok] {
			continue
		}
		terms = append(terms, english.Stem(tok, false))
	}
	return terms
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func termFrequencies(terms []string) map[string]float64 {
	tf := make(map[string]float64, len(terms))
	for _, t := range terms {
		tf[t]++
	}
	return tf
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

var stopwords = func() map[string]bool {
	words := strings.Fields(`
		a about above after again against all am an and any are as at
		be because been before being below between both but by
		can could did do does doing down during each few for from further
		had has have having he her here hers herself him himself his how
		i if in into is it its itself just me more most my myself
		no nor not now of off on once only or other our ours ourselves out over own
		same she should so some such than that the their theirs them themselves
		then there these they this those through to too under until up very
		was we were what when where which while who whom why will with would
		you your yours yourself yourselves`)
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()
