package models

import "time"

// Values of the X-Data-Source response header.
const (
	SourceFresh      = "fresh"
	SourceCache      = "cache"
	SourceStaleCache = "stale-cache"
)

// Pagination describes the page returned by an inventory query.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalPages int `json:"totalPages"`
}

// InventoryResponse is the 200 body of the inventory endpoint.
type InventoryResponse struct {
	Success     bool       `json:"success"`
	Vehicles    []Listing  `json:"vehicles"`
	TotalCount  int        `json:"totalCount"`
	Pagination  Pagination `json:"pagination"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// ErrorResponse is the body of every failed inventory request.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// CacheStatusResponse reports the cache state machine.
type CacheStatusResponse struct {
	State               string     `json:"state"`
	Listings            int        `json:"listings"`
	FetchedAt           *time.Time `json:"fetchedAt,omitempty"`
	AgeSeconds          float64    `json:"ageSeconds"`
	TTLSeconds          float64    `json:"ttlSeconds"`
	ConsecutiveFailures int        `json:"consecutiveFailures"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	BackoffUntil        *time.Time `json:"backoffUntil,omitempty"`
	Refreshing          bool       `json:"refreshing"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}
