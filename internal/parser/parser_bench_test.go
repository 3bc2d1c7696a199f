package parser

import (
	"testing"
)

const (
	// Sample log lines for benchmarking
	sampleApacheLog = `192.168.1.100 - - [15/Jan/2024:10:30:45 -0700] "GET /api/users HTTP/1.1" 200 1234 "https://example.com/previous" "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`

	sampleMarkerLog = `203.0.113.7 - - [15/Jan/2024:10:30:45 -0700] "GET /files/today_download?id=42 HTTP/1.1" 200 88123 "-" "curl/8.4.0"`

	sampleHostnameLog = `proxy.example.com - - [15/Jan/2024:10:30:45 -0700] "GET /files/today_download HTTP/1.1" 200 88123`
)

// BenchmarkLenientExtractor measures leading-IP extraction speed
func BenchmarkLenientExtractor(b *testing.B) {
	extractor := &LenientExtractor{}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, ok := extractor.Extract(sampleMarkerLog); !ok {
			b.Fatal("expected an IP")
		}
	}
}

// BenchmarkStrictExtractor measures extraction plus octet validation
func BenchmarkStrictExtractor(b *testing.B) {
	extractor := &StrictExtractor{}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, ok := extractor.Extract(sampleMarkerLog); !ok {
			b.Fatal("expected an IP")
		}
	}
}

// BenchmarkExtractorNoMatch measures the rejection path
func BenchmarkExtractorNoMatch(b *testing.B) {
	extractor := &LenientExtractor{}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, ok := extractor.Extract(sampleHostnameLog); ok {
			b.Fatal("unexpected IP")
		}
	}
}

// BenchmarkContainsMarker measures the cheap pre-filter applied to every line
func BenchmarkContainsMarker(b *testing.B) {
	lines := []string{sampleApacheLog, sampleMarkerLog, sampleHostnameLog}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = ContainsMarker(lines[i%len(lines)], "today_download")
	}
}
