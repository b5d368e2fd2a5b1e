package domain

import (
	"testing"

	appErrors "nodeflow/internal/errors"
)

func TestStatusValidate(t *testing.T) {
	for _, status := range []Status{StatusIdea, StatusActive, StatusDone} {
		if err := status.Validate(); err != nil {
			t.Errorf("expected %q to be valid, got error: %v", status, err)
		}
	}

	for _, status := range []Status{StatusUnknown, Status("open"), Status("Idea")} {
		err := status.Validate()
		if err == nil {
			t.Errorf("expected %q to be invalid", status)
			continue
		}
		if !appErrors.IsCode(err, appErrors.CodeInvalidStatus) {
			t.Errorf("expected invalid_status code for %q, got %s", status, appErrors.CodeOf(err))
		}
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"idea":     StatusIdea,
		" active ": StatusActive,
		"DONE":     StatusDone,
	}
	for raw, expected := range cases {
		got, err := ParseStatus(raw)
		if err != nil {
			t.Fatalf("ParseStatus(%q) returned error: %v", raw, err)
		}
		if got != expected {
			t.Fatalf("ParseStatus(%q) = %q, want %q", raw, got, expected)
		}
	}

	for _, raw := range []string{"", "   ", "closed"} {
		if _, err := ParseStatus(raw); err == nil {
			t.Fatalf("expected ParseStatus(%q) to return error", raw)
		}
	}
}

func TestStatusNextCycles(t *testing.T) {
	cases := []struct {
		from Status
		want Status
	}{
		{StatusIdea, StatusActive},
		{StatusActive, StatusDone},
		{StatusDone, StatusIdea},
		{Status("bogus"), StatusIdea},
	}
	for _, tc := range cases {
		if got := tc.from.Next(); got != tc.want {
			t.Errorf("%q.Next() = %q, want %q", tc.from, got, tc.want)
		}
	}
}

func TestParseHandle(t *testing.T) {
	cases := map[string]Handle{
		"left":     HandleLeft,
		"s-right":  HandleRight,
		"t-top":    HandleTop,
		" Bottom ": HandleBottom,
	}
	for raw, expected := range cases {
		got, err := ParseHandle(raw)
		if err != nil {
			t.Fatalf("ParseHandle(%q) returned error: %v", raw, err)
		}
		if got != expected {
			t.Fatalf("ParseHandle(%q) = %q, want %q", raw, got, expected)
		}
	}
	for _, raw := range []string{"", "target-all", "middle"} {
		_, err := ParseHandle(raw)
		if !appErrors.IsCode(err, appErrors.CodeInvalidHandle) {
			t.Fatalf("expected invalid_handle for %q, got %v", raw, err)
		}
	}
	if got := HandleLeft.SourceID(); got != "s-left" {
		t.Fatalf("unexpected source id %q", got)
	}
	if got := HandleLeft.TargetID(); got != "t-left" {
		t.Fatalf("unexpected target id %q", got)
	}
}
