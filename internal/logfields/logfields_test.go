package logfields

import (
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"BuildID", KeyBuildID, "123", BuildID("123")},
		{"Builder", KeyBuilder, "basic", Builder("basic")},
		{"Program", KeyProgram, "pdflatex", Program("pdflatex")},
		{"Engine", KeyEngine, "xelatex", Engine("xelatex")},
		{"Directory", KeyDirectory, "out/ch1", Directory("out/ch1")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"JobName", KeyJobName, "thesis", JobName("thesis")},
		{"Outcome", KeyOutcome, "success", Outcome("success")},
		{"Revision", KeyRevision, "abc123", Revision("abc123")},
		{"Pattern", KeyPattern, "rerun-crossrefs", Pattern("rerun-crossrefs")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestNumericHelpers verifies keys for numeric & float helpers.
func TestNumericHelpers(t *testing.T) {
	if v := Step(3); v.Key != KeyStep {
		t.Fatalf("Step key mismatch: %s", v.Key)
	}
	if v := ExitCode(1); v.Key != KeyExitCode {
		t.Fatalf("ExitCode key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError {
		t.Fatalf("Error key mismatch: %s", attr.Key)
	}
	if attr.Value.String() != "" {
		t.Fatalf("Expected empty error string, got %s", attr.Value.String())
	}
	attr = Error(errTest{})
	if attr.Value.String() != "err-test" {
		t.Fatalf("Expected 'err-test', got %s", attr.Value.String())
	}
}

type errTest struct{}

func (e errTest) Error() string { return "err-test" }
