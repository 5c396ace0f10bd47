package handler

import (
    "strings"
    "testing"
    "unicode/utf8"
)

func TestTruncateKeepsRunesIntact(t *testing.T) {
    // "é" is two bytes; an odd byte limit would split it.
    long := strings.Repeat("é", 100)
    got := truncate(long, 121)
    if !utf8.ValidString(got) {
        t.Fatalf("truncation produced invalid UTF-8: %q", got)
    }
    if !strings.HasSuffix(got, "...") {
        t.Fatalf("expected ellipsis suffix, got %q", got)
    }
    if len(got) > 121+3 {
        t.Fatalf("truncated string too long: %d bytes", len(got))
    }
}

func TestTruncateShortStringUntouched(t *testing.T) {
    if got := truncate("short", 120); got != "short" {
        t.Fatalf("short string modified: %q", got)
    }
}

func TestExcerptLimitsLength(t *testing.T) {
    long := strings.Repeat("водограй ", 40)
    got := excerpt(long)
    if !utf8.ValidString(got) {
        t.Fatalf("excerpt produced invalid UTF-8: %q", got)
    }
    if len(got) > 123 {
        t.Fatalf("excerpt too long: %d bytes", len(got))
    }
}
