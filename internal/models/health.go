package models

// HealthStatus classifies connectivity to the pipeline
type HealthStatus string

const (
	HealthConnected HealthStatus = "connected"
	HealthError     HealthStatus = "error"
	HealthChecking  HealthStatus = "checking"
)

// EndpointCheck is the probe result for a single pipeline endpoint
type EndpointCheck struct {
	Service    string `json:"service"`
	Status     string `json:"status"` // healthy, unhealthy or error
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}
