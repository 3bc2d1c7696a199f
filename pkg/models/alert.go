package models

import (
	"fmt"
	"time"
)

// Alert represents a threshold violation raised for a single IP
type Alert struct {
	Timestamp time.Time     `json:"timestamp"`
	IPAddress string        `json:"ip_address"`
	Marker    string        `json:"marker"`
	Count     int           `json:"count"`
	Window    time.Duration `json:"window_ns"`
}

// Message formats the alert body handed to the notification sink
func (a Alert) Message() string {
	return fmt.Sprintf("[ERROR] SUSPICIOUS ACTIVITY: IP %s accessed %s %d times in %d minutes",
		a.IPAddress, a.Marker, a.Count, int(a.Window/time.Minute))
}

// Status is a point-in-time view of the monitor, safe to share across goroutines
type Status struct {
	Timestamp         time.Time `json:"timestamp"`
	StartedAt         time.Time `json:"started_at"`
	CurrentFile       string    `json:"current_file"`
	Rotations         int       `json:"rotations"`
	LinesSeen         int64     `json:"lines_seen"`
	MarkerLines       int64     `json:"marker_lines"`
	UnattributedLines int64     `json:"unattributed_lines"`
	TrackedIPs        int       `json:"tracked_ips"`
	AlertedIPs        int       `json:"alerted_ips"`
	AlertsSent        int64     `json:"alerts_sent"`
	TopIPs            []IPCount `json:"top_ips"`
	LastAlert         *Alert    `json:"last_alert,omitempty"`
}

// IPCount represents recent marker hits per IP
type IPCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}
