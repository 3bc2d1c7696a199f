package parser

import (
	"net/netip"
	"regexp"
	"strings"
)

// leadingIPv4 matches four dot-separated groups of 1-3 digits at the start
// of a line. Octet range is not checked here.
var leadingIPv4 = regexp.MustCompile(`^(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})`)

// IPExtractor pulls the client address out of a raw access log line
type IPExtractor interface {
	Extract(line string) (string, bool)
}

// NewExtractor creates an extractor. A strict extractor additionally
// requires every octet to be in 0-255.
func NewExtractor(strict bool) IPExtractor {
	if strict {
		return &StrictExtractor{}
	}
	return &LenientExtractor{}
}

// LenientExtractor accepts any dotted quad of 1-3 digit groups, so
// "999.1.1.1" is returned as-is
type LenientExtractor struct{}

func (e *LenientExtractor) Extract(line string) (string, bool) {
	m := leadingIPv4.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// StrictExtractor applies the same pattern and then rejects matches that
// are not valid IPv4 addresses
type StrictExtractor struct{}

func (e *StrictExtractor) Extract(line string) (string, bool) {
	m := leadingIPv4.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	// netip rejects leading zeros as well as octets above 255
	if _, err := netip.ParseAddr(m[1]); err != nil {
		return "", false
	}
	return m[1], true
}

// ContainsMarker reports whether line mentions marker anywhere
func ContainsMarker(line, marker string) bool {
	return strings.Contains(line, marker)
}
