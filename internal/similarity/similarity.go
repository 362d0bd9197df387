// Package similarity provides the string and geographic distance primitives
// used by the scoring and suggestion layers.
package similarity

import (
	"math"
	"strings"
)

// earthRadiusM is the mean earth radius in metres.
const earthRadiusM = 6371000.0

var reSpace = strings.NewReplacer(" ", "", "\t", "", "\n", "")

// Dice computes the bigram-set Dice coefficient between two strings on their
// whitespace-stripped, lowercased forms. Bigrams are built over runes, so
// accented names compare by character rather than by byte fragment.
// Identical strings score 1; strings too short to form a bigram score 0
// unless identical. Symmetric.
func Dice(a, b string) float64 {
	s1 := []rune(strings.ToLower(reSpace.Replace(a)))
	s2 := []rune(strings.ToLower(reSpace.Replace(b)))

	if string(s1) == string(s2) {
		return 1
	}
	if len(s1) < 2 || len(s2) < 2 {
		return 0
	}

	bigrams := make(map[string]int, len(s1)-1)
	for i := 0; i < len(s1)-1; i++ {
		bigrams[string(s1[i:i+2])]++
	}

	intersection := 0
	for i := 0; i < len(s2)-1; i++ {
		bg := string(s2[i : i+2])
		if bigrams[bg] > 0 {
			bigrams[bg]--
			intersection++
		}
	}

	return 2.0 * float64(intersection) / float64(len(s1)+len(s2)-2)
}

// Haversine returns the great-circle distance in metres between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * c
}

// HaversineOpt computes the distance to a point whose coordinates may be
// absent. Returns +Inf when either coordinate is missing; callers must treat
// that as "distance unknown", never as zero.
func HaversineOpt(lat1, lon1 float64, lat2, lon2 *float64) float64 {
	if lat2 == nil || lon2 == nil {
		return math.Inf(1)
	}
	return Haversine(lat1, lon1, *lat2, *lon2)
}
