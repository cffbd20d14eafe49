package models

import "time"

// ProxyRecord is a candidate outbound relay and the result of its health check.
type ProxyRecord struct {
	Address string        `json:"address"`
	Source  string        `json:"source,omitempty"`
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency,omitempty"`
}
