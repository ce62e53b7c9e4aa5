package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesSentinelIdentityOnly(t *testing.T) {
	first := Forbidden("SAME_CODE", "same message")
	second := Forbidden("SAME_CODE", "same message")

	if !errors.Is(first, first) {
		t.Fatalf("sentinel must match itself")
	}
	if errors.Is(first, second) {
		t.Fatalf("distinct sentinels with equal code must not match")
	}
}

func TestWrapKeepsSentinelAndCause(t *testing.T) {
	sentinel := Dependency("BLOB_STORE_UNAVAILABLE", "blob store unavailable")
	cause := errors.New("dial tcp: refused")

	err := fmt.Errorf("upload: %w", Wrap(sentinel, cause))

	if !errors.Is(err, sentinel) {
		t.Fatalf("wrapped error must match sentinel")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("wrapped error must match cause")
	}
	if KindOf(err) != KindDependency {
		t.Fatalf("unexpected kind: %v", KindOf(err))
	}
}

func TestKindOfUnclassifiedIsInternal(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("unexpected kind: %v", got)
	}
	if got := KindOf(nil); got != KindInternal {
		t.Fatalf("unexpected kind for nil: %v", got)
	}
}

func TestWithMessageKeepsIdentity(t *testing.T) {
	sentinel := Conflict("ALREADY_PROCESSED", "already processed")
	err := sentinel.WithMessage("status: verified")

	if !errors.Is(err, sentinel) {
		t.Fatalf("copy must match sentinel")
	}
	got, ok := As(err)
	if !ok || got.Message != "status: verified" || got.Code != "ALREADY_PROCESSED" {
		t.Fatalf("unexpected classified error: %+v", got)
	}
}
