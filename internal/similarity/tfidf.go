package similarity

import (
	"math"
	"strings"
	"unicode"
)

// Lexical scores two texts without calling any external service.
type Lexical interface {
	Similarity(a, b string) float64
}

// TFIDF compares two texts by the cosine of their TF-IDF vectors, with the two texts
// forming the whole corpus. Tokens are lower-cased runs of at least two letters, digits or
// underscores; idf is smoothed as ln((1+n)/(1+df))+1.
type TFIDF struct{}

func (TFIDF) Similarity(a, b string) float64 {
	docs := [2]map[string]float64{termCounts(a), termCounts(b)}
	if len(docs[0]) == 0 || len(docs[1]) == 0 {
		return 0
	}

	df := make(map[string]int)
	for _, doc := range docs {
		for term := range doc {
			df[term]++
		}
	}

	n := float64(len(docs))
	for _, doc := range docs {
		var norm float64
		for term, tf := range doc {
			idf := math.Log((1+n)/(1+float64(df[term]))) + 1
			w := tf * idf
			doc[term] = w
			norm += w * w
		}
		norm = math.Sqrt(norm)
		for term := range doc {
			doc[term] /= norm
		}
	}

	var dot float64
	for term, w := range docs[0] {
		dot += w * docs[1][term]
	}

	return clamp01(dot)
}

func termCounts(text string) map[string]float64 {
	counts := make(map[string]float64)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		counts[w]++
	}
	return counts
}
