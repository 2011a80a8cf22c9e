package tools

import (
	"context"
	"testing"
)

func TestNotifierRoundTrip(t *testing.T) {
	var got []ComponentEvent
	ctx := WithNotifier(context.Background(), func(ev ComponentEvent) {
		got = append(got, ev)
	})

	Notify(ctx, ComponentEvent{Component: "calendly", Props: map[string]any{"url": "https://calendly.com/x"}})

	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Component != "calendly" {
		t.Errorf("Component = %q", got[0].Component)
	}
}

func TestNotifyWithoutNotifierIsNoop(t *testing.T) {
	// Must not panic.
	Notify(context.Background(), ComponentEvent{Component: "calendly"})
}

func TestSchedulingURLOverride(t *testing.T) {
	ctx := context.Background()
	if got := schedulingURLFrom(ctx); got != "" {
		t.Errorf("expected empty default, got %q", got)
	}

	ctx = WithSchedulingURL(ctx, "https://calendly.com/tenant/30min")
	if got := schedulingURLFrom(ctx); got != "https://calendly.com/tenant/30min" {
		t.Errorf("schedulingURLFrom = %q", got)
	}

	// Empty override leaves the context untouched.
	ctx2 := WithSchedulingURL(context.Background(), "")
	if got := schedulingURLFrom(ctx2); got != "" {
		t.Errorf("empty override should resolve to %q, got %q", "", got)
	}
}

func TestReportFocusCoversAllTypes(t *testing.T) {
	for _, rt := range ReportTypes {
		if _, ok := reportFocus[rt]; !ok {
			t.Errorf("report type %q has no focus", rt)
		}
	}
	if len(reportFocus) != len(ReportTypes) {
		t.Errorf("reportFocus has %d entries, ReportTypes has %d", len(reportFocus), len(ReportTypes))
	}
}

func TestValidateCompanyInput(t *testing.T) {
	tests := []struct {
		name    string
		input   quickWinInput
		wantErr bool
	}{
		{"valid", quickWinInput{CompanyName: "Acme Corp", CompanyURL: "https://acme.com"}, false},
		{"placeholder name", quickWinInput{CompanyName: "Unknown", CompanyURL: "https://acme.com"}, true},
		{"placeholder name case-insensitive", quickWinInput{CompanyName: "TBD", CompanyURL: "https://acme.com"}, true},
		{"name too short", quickWinInput{CompanyName: "A", CompanyURL: "https://acme.com"}, true},
		{"placeholder url", quickWinInput{CompanyName: "Acme Corp", CompanyURL: "n/a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCompanyInput(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCompanyInput(%+v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
