package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertMessage(t *testing.T) {
	testCases := []struct {
		name   string
		alert  Alert
		expect string
	}{
		{
			name:   "DefaultWindow",
			alert:  Alert{IPAddress: "1.2.3.4", Marker: "today_download", Count: 10, Window: 600 * time.Second},
			expect: "[ERROR] SUSPICIOUS ACTIVITY: IP 1.2.3.4 accessed today_download 10 times in 10 minutes",
		},
		{
			name:   "PartialMinuteTruncates",
			alert:  Alert{IPAddress: "10.0.0.1", Marker: "/export", Count: 3, Window: 90 * time.Second},
			expect: "[ERROR] SUSPICIOUS ACTIVITY: IP 10.0.0.1 accessed /export 3 times in 1 minutes",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.alert.Message())
		})
	}
}

func TestStatusJSON(t *testing.T) {
	status := Status{
		CurrentFile: "/logs/apache/ssl_www_log-2026-10-14",
		TrackedIPs:  2,
		TopIPs:      []IPCount{{IP: "1.2.3.4", Count: 9}},
	}

	data, err := json.Marshal(status)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, "/logs/apache/ssl_www_log-2026-10-14", parsed["current_file"])
	assert.Equal(t, float64(2), parsed["tracked_ips"])
	assert.NotContains(t, parsed, "last_alert")
}
