package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLenientExtractor(t *testing.T) {
	testCases := []struct {
		name   string
		line   string
		wantIP string
		wantOK bool
	}{
		{"ApacheCombined", sampleApacheLog, "192.168.1.100", true},
		{"BareIP", "1.2.3.4", "1.2.3.4", true},
		{"IPThenDot", "10.0.0.1.5 - - trailing", "10.0.0.1", true},
		{"OutOfRangeOctetsKept", "999.300.256.1 - - GET /today_download", "999.300.256.1", true},
		{"LeadingWhitespace", " 1.2.3.4 - -", "", false},
		{"Hostname", "example.com - - [15/Jan/2024] GET /", "", false},
		{"ThreeGroups", "1.2.3 - -", "", false},
		{"FourDigitGroupTruncated", "1234.1.1.1", "", false},
		{"IPv6", "::1 - - GET /today_download", "", false},
		{"Empty", "", "", false},
	}

	extractor := NewExtractor(false)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ip, ok := extractor.Extract(tc.line)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantIP, ip)
		})
	}
}

func TestStrictExtractor(t *testing.T) {
	testCases := []struct {
		name   string
		line   string
		wantIP string
		wantOK bool
	}{
		{"Valid", sampleApacheLog, "192.168.1.100", true},
		{"Broadcast", "255.255.255.255 - -", "255.255.255.255", true},
		{"OctetTooLarge", "999.1.1.1 - -", "", false},
		{"LeadingZero", "01.2.3.4 - -", "", false},
		{"NoMatch", "garbage", "", false},
	}

	extractor := NewExtractor(true)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ip, ok := extractor.Extract(tc.line)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantIP, ip)
		})
	}
}

func TestContainsMarker(t *testing.T) {
	assert.True(t, ContainsMarker(`1.2.3.4 - - "GET /files/today_download HTTP/1.1" 200`, "today_download"))
	assert.True(t, ContainsMarker("today_download", "today_download"))
	assert.False(t, ContainsMarker(`1.2.3.4 - - "GET /index.html HTTP/1.1" 200`, "today_download"))
	assert.False(t, ContainsMarker("TODAY_DOWNLOAD", "today_download"))
}
