package rules

import "strings"

type CookingTimeBucket string

const (
	CookingTimeUnder30   CookingTimeBucket = "<30"
	CookingTime30To60    CookingTimeBucket = "30-60"
	CookingTime60To120   CookingTimeBucket = "60-120"
	CookingTimeOver120   CookingTimeBucket = ">120"
	DefaultPageSize                        = 20
	MaxPageSize                            = 100
	MinRecipeTitleLength                   = 3
	MinInstructionLength                   = 10
	MinRatingScore                         = 1
	MaxRatingScore                         = 5
	MaxPageNumber                          = 100000
)

// Bounds returns the inclusive-exclusive minute range of a bucket. max is zero when open ended.
func (b CookingTimeBucket) Bounds() (min, max int, ok bool) {
	switch b {
	case CookingTimeUnder30:
		return 0, 30, true
	case CookingTime30To60:
		return 30, 61, true
	case CookingTime60To120:
		return 61, 121, true
	case CookingTimeOver120:
		return 121, 0, true
	default:
		return 0, 0, false
	}
}

func ParseCookingTimeBucket(raw string) (CookingTimeBucket, bool) {
	bucket := CookingTimeBucket(strings.TrimSpace(raw))
	if _, _, ok := bucket.Bounds(); !ok {
		return "", false
	}
	return bucket, true
}

// NormalizePage clamps page to 1..MaxPageNumber and limit to 1..max,
// falling back to def.
func NormalizePage(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPageNumber {
		page = MaxPageNumber
	}
	if def <= 0 {
		def = DefaultPageSize
	}
	if max <= 0 {
		max = MaxPageSize
	}
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}

func ValidRatingScore(score int) bool {
	return score >= MinRatingScore && score <= MaxRatingScore
}

func RoundRating(avg float64) float64 {
	return float64(int64(avg*100+0.5)) / 100
}
