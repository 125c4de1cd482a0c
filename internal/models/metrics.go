package models

import "time"

// SystemMetrics is a point-in-time summary of portal activity captured from instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	RequestsCreated          uint64    `json:"document_requests_created"`
	TokenRejections          uint64    `json:"token_rejections"`
	FilesUploaded            uint64    `json:"files_uploaded"`
	Commits                  uint64    `json:"commits"`
	Expirations              uint64    `json:"expirations"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
