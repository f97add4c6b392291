package scoring

import (
	"fmt"
	"math"

	"github.com/hyperjump/pagegrade/internal/models"
)

// Score bands.
const (
	BandGood = "good"
	BandFair = "fair"
	BandPoor = "poor"
)

// CompositeScore returns a 0-100 score: up to 30 points for length (2000 words),
// 40 for readability, 20 for sentence count (50 sentences) and 10 for average word length (6).
func CompositeScore(f models.Features) float64 {
	words := math.Min(float64(f.WordCount)/2000, 1) * 30
	readability := math.Min(math.Max(f.FleschReadingEase, 0)/100, 1) * 40
	sentences := math.Min(float64(f.SentenceCount)/50, 1) * 20
	wordLength := math.Min(f.AvgWordLength/6, 1) * 10
	total := words + readability + sentences + wordLength
	if math.IsNaN(total) || total < 0 {
		return 0
	}
	return math.Min(total, 100)
}

// IsThin reports whether wordCount is below threshold.
func IsThin(wordCount, threshold int) bool {
	return wordCount < threshold
}

// Band maps a composite score to good, fair or poor.
func Band(score float64) string {
	switch {
	case score >= 75:
		return BandGood
	case score >= 50:
		return BandFair
	default:
		return BandPoor
	}
}

// Color returns the display colour for a composite score.
func Color(score float64) string {
	switch Band(score) {
	case BandGood:
		return "#28a745"
	case BandFair:
		return "#ffc107"
	default:
		return "#dc3545"
	}
}

// Interpret explains a label and lists recommendations based on length and readability.
func Interpret(label models.QualityLabel, f models.Features, score float64) models.Interpretation {
	in := models.Interpretation{
		Label: label,
		Band:  Band(score),
		Color: Color(score),
	}
	switch label {
	case models.QualityHigh:
		in.Message = "Excellent content quality!"
		in.Description = "This content has strong indicators of high quality with good length and readability."
	case models.QualityMedium:
		in.Message = "Good content, but room for improvement"
		in.Description = "This content meets basic quality standards but could be enhanced."
	case models.QualityLow:
		in.Message = "Content needs significant improvement"
		in.Description = "This content falls short of quality standards."
	default:
		in.Message = "Unable to assess quality"
		in.Description = "Quality assessment unavailable."
	}

	recs := []string{}
	switch {
	case f.WordCount < 500:
		recs = append(recs, fmt.Sprintf("Increase content length (current: %d words, recommended: 500+ words)", f.WordCount))
	case f.WordCount < 1500:
		recs = append(recs, fmt.Sprintf("Consider expanding content (current: %d words, optimal: 1500+ words)", f.WordCount))
	}
	switch {
	case f.FleschReadingEase < 30:
		recs = append(recs, fmt.Sprintf("Simplify language for better readability (Flesch score: %.1f/100)", f.FleschReadingEase))
	case f.FleschReadingEase < 50:
		recs = append(recs, fmt.Sprintf("Improve readability with simpler sentences (Flesch score: %.1f/100)", f.FleschReadingEase))
	}
	if label == models.QualityLow {
		recs = append(recs,
			"Review content structure and add more value",
			"Focus on user intent and comprehensive coverage",
		)
	}
	in.Recommendations = recs
	return in
}
