package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamCatalogKey returns the cache key for the active exam catalog.
func (r *CacheKeyStruct) ExamCatalogKey() string {
	return "exams:catalog"
}

// ExamKey returns the cache key for a single exam record.
func (r *CacheKeyStruct) ExamKey(examID string) string {
	return fmt.Sprintf("exam:%s", examID)
}

// ExamObjectivesKey returns the cache key for an exam's objectives.
func (r *CacheKeyStruct) ExamObjectivesKey(examID string) string {
	return fmt.Sprintf("exam:%s:objectives", examID)
}

// UserWeakAreasKey returns the cache key for a user's weak-area report.
func (r *CacheKeyStruct) UserWeakAreasKey(userID string) string {
	return fmt.Sprintf("user:%s:weak_areas", userID)
}

var CacheKey = NewCacheKeyStruct()
