package dto

import "time"

// ResaveRequest represents the API request for starting a resave sweep
type ResaveRequest struct {
	// Fast narrows the sweep to resources whose derived state can have
	// changed. Nil leaves the configured default in force
	Fast *bool `json:"fast"`
	// RunTime pins the sweep's logical time; pass the original value to
	// resume a stopped run. Zero means now
	RunTime time.Time `json:"runTime"`
}

// ResaveResponse represents the aggregate outcome of a resave sweep
type ResaveResponse struct {
	RunTime      time.Time `json:"runTime"`
	Processed    int64     `json:"processed"`
	Resaved      int64     `json:"resaved"`
	Unchanged    int64     `json:"unchanged"`
	FailedShards []string  `json:"failedShards,omitempty"`
}
