package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CreateCourseDraftKey returns the draft key for an admin's new-course form
func (r *CacheKeyStruct) CreateCourseDraftKey(adminID int) string {
	return fmt.Sprintf("%d:create-course-draft", adminID)
}

// EditCourseDraftKey returns the draft key for an admin's edit form of one course
func (r *CacheKeyStruct) EditCourseDraftKey(adminID int, courseID string) string {
	return fmt.Sprintf("%d:edit-course-%s", adminID, courseID)
}

// SubmitRateKey returns the rate limiter bucket for an admin's course submits
func (r *CacheKeyStruct) SubmitRateKey(adminID int) string {
	return fmt.Sprintf("ratelimit:submit:%d", adminID)
}

var CacheKey = NewCacheKeyStruct()
