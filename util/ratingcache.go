package util

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache of doctorID -> average rating. Averages are recomputed on a miss and
// dropped whenever a rating for the doctor is written.
var ratingCache *gocache.Cache

// InitRatingCache initializes the average-rating cache. Entries expire after
// ttl as a backstop; writers are expected to invalidate explicitly.
func InitRatingCache(ttl time.Duration) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	ratingCache = gocache.New(ttl, 2*ttl)
}

func ratingCacheKey(doctorID uint) string {
	return fmt.Sprintf("doctor_rating_avg:%d", doctorID)
}

// RatingCacheGet returns the cached average rating for a doctor, if present.
func RatingCacheGet(doctorID uint) (float64, bool) {
	if ratingCache == nil {
		return 0, false
	}
	if v, ok := ratingCache.Get(ratingCacheKey(doctorID)); ok {
		if avg, ok := v.(float64); ok {
			return avg, true
		}
	}
	return 0, false
}

// RatingCacheSet stores the average rating for a doctor.
func RatingCacheSet(doctorID uint, avg float64) {
	if ratingCache == nil {
		return
	}
	ratingCache.Set(ratingCacheKey(doctorID), avg, gocache.DefaultExpiration)
}

// RatingCacheInvalidate drops the cached average for a doctor.
func RatingCacheInvalidate(doctorID uint) {
	if ratingCache == nil {
		return
	}
	ratingCache.Delete(ratingCacheKey(doctorID))
}
