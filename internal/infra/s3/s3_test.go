package s3

import "testing"

func TestPublicBaseURLPrefersConfiguredValue(t *testing.T) {
	got := PublicBaseURL(Config{Endpoint: "minio:9000", PublicBaseURL: "https://cdn.example.com/media/"}, "bucket")
	if got != "https://cdn.example.com/media" {
		t.Fatalf("unexpected base url: %s", got)
	}
}

func TestPublicBaseURLFallsBackToEndpoint(t *testing.T) {
	got := PublicBaseURL(Config{Endpoint: "minio:9000", UseSSL: true}, "media")
	if got != "https://minio:9000/media" {
		t.Fatalf("unexpected base url: %s", got)
	}
}

func TestNewClientRequiresEndpoint(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error for empty endpoint")
	}
}
