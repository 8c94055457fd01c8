package errors

import (
	stdErrors "errors"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		retryable bool
		fatal     bool
	}{
		{code: CodeValidation, retryable: true},
		{code: CodeNotFound},
		{code: CodeStateConflict},
		{code: CodeCacheDivergence, fatal: true},
		{code: CodeDependency, retryable: true},
		{code: CodeInternal},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.Fatal != tt.fatal {
			t.Fatalf("code %s expected fatal %v got %v", tt.code, tt.fatal, meta.Fatal)
		}
		if meta.UserMessage == "" {
			t.Fatalf("code %s must carry a user message", tt.code)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.Fatal || meta.Retryable {
		t.Fatalf("unknown codes must fall back to internal metadata, got %+v", meta)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "bad ticket number")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "bad ticket number" {
		t.Fatalf("unexpected message %q", base.Message())
	}

	detail := map[string]any{"field": "number"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "load ticket")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(New(CodeCacheDivergence, "marker ahead of store")) {
		t.Fatalf("cache divergence must be fatal")
	}
	if IsFatal(New(CodeValidation, "nope")) {
		t.Fatalf("validation must not be fatal")
	}
	if IsFatal(stdErrors.New("plain")) {
		t.Fatalf("untyped errors are not fatal")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeNotFound, "gone")
	if got := As(err); got == nil || got.Code() != CodeNotFound {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}
