package failure

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindPermissionDenied, "PermissionDenied"},
		{KindRecorderInit, "RecorderInitError"},
		{KindEmptyRecording, "EmptyRecording"},
		{KindUnknownDuration, "UnknownDuration"},
		{KindExportFailed, "ExportFailed"},
		{KindNetwork, "NetworkError"},
		{KindBadStatus, "BadStatus"},
		{KindEmptyBody, "EmptyBody"},
		{KindDecode, "DecodeError"},
		{KindMalformedResponse, "MalformedResponse"},
		{KindLinkParse, "LinkParseError"},
		{KindReadFailed, "ReadError"},
		{Kind(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("Kind(%d).String() = %v, want %v", tt.kind, got, tt.expected)
		}
	}
}

func TestError_IsMatchesSentinelOfSameKind(t *testing.T) {
	err := fmt.Errorf("chunk 2/5: %w", BadStatus("transcribe", 502, "bad gateway"))

	if !errors.Is(err, ErrBadStatus) {
		t.Error("expected wrapped error to match ErrBadStatus")
	}
	if errors.Is(err, ErrNetwork) {
		t.Error("did not expect BadStatus to match ErrNetwork")
	}
	if KindOf(err) != KindBadStatus {
		t.Errorf("expected KindBadStatus, got %v", KindOf(err))
	}
	if StatusCodeOf(err) != 502 {
		t.Errorf("expected status 502, got %d", StatusCodeOf(err))
	}
}

func TestError_MessageIncludesKindAndStatus(t *testing.T) {
	err := BadStatus("relay", 404, "")
	if got := err.Error(); got != "BadStatus(404): relay" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestNetwork_DiagnosesTimeout(t *testing.T) {
	cause := &url.Error{Op: "Post", URL: "https://stt.example", Err: context.DeadlineExceeded}
	err := Network("transcribe", cause)

	if err.Domain != "context" || err.Code != "timeout" {
		t.Errorf("expected context/timeout diagnostics, got %s/%s", err.Domain, err.Code)
	}
	if !strings.Contains(err.Error(), "NetworkError: transcribe") {
		t.Errorf("unexpected message: %q", err.Error())
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected cause to stay reachable through Unwrap")
	}
}

func TestKindOf_PlainError(t *testing.T) {
	if KindOf(errors.New("boom")) != KindUnknown {
		t.Error("expected KindUnknown for unclassified error")
	}
	if StatusCodeOf(errors.New("boom")) != 0 {
		t.Error("expected no status code for unclassified error")
	}
}

func TestNewf_Detail(t *testing.T) {
	err := Newf(KindEmptyRecording, "stop", "file %s is empty", "/tmp/a.m4a")
	if got := err.Error(); got != "EmptyRecording: stop: file /tmp/a.m4a is empty" {
		t.Errorf("unexpected message: %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		maxLen   int
		expected string
	}{
		{"short", "abc", 8, "abc"},
		{"exact", "abcd", 4, "abcd"},
		{"ascii", "abcdef", 4, "abcd..."},
		// Each Hangul syllable is three bytes.
		{"hangul on boundary", "회의록요약", 6, "회의..."},
		{"hangul mid rune", "회의록요약", 7, "회의..."},
		{"hangul inside first rune", "회의록요약", 2, "..."},
	}

	for _, tt := range tests {
		got := Truncate(tt.in, tt.maxLen)
		if got != tt.expected {
			t.Errorf("%s: Truncate(%q, %d) = %q, want %q", tt.name, tt.in, tt.maxLen, got, tt.expected)
		}
		if !utf8.ValidString(got) {
			t.Errorf("%s: result %q is not valid UTF-8", tt.name, got)
		}
	}
}

func TestBadStatus_KoreanBodyStaysValidUTF8(t *testing.T) {
	body := strings.Repeat("서버 오류가 발생했습니다. ", 40)
	err := BadStatus("relay", 500, body)

	if len(err.Detail) > 256+len("...") {
		t.Errorf("detail not truncated: %d bytes", len(err.Detail))
	}
	if !utf8.ValidString(err.Detail) {
		t.Errorf("detail is not valid UTF-8: %q", err.Detail)
	}
	if !utf8.ValidString(err.Error()) {
		t.Error("error message is not valid UTF-8")
	}
}
