package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateChain(t *testing.T) {
	tests := []struct {
		name    string
		rec     ReferralRecord
		wantErr bool
	}{
		{"no parents", ReferralRecord{UserID: "u"}, false},
		{"full chain", ReferralRecord{UserID: "u", Parent1: "a", Parent2: "b", Parent3: "c"}, false},
		{"self parent", ReferralRecord{UserID: "u", Parent1: "u"}, true},
		{"self grandparent", ReferralRecord{UserID: "u", Parent1: "a", Parent2: "u"}, true},
		{"repeated ancestor", ReferralRecord{UserID: "u", Parent1: "a", Parent2: "b", Parent3: "a"}, true},
		{"gap in chain", ReferralRecord{UserID: "u", Parent2: "b"}, true},
		{"empty user", ReferralRecord{Parent1: "a"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.ValidateChain()
			if tt.wantErr && !errors.Is(err, ErrInvalidChain) {
				t.Fatalf("expected ErrInvalidChain, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestAncestors(t *testing.T) {
	rec := ReferralRecord{UserID: "u", Parent1: "a", Parent2: "b"}
	got := rec.Ancestors()
	if len(got) != 2 || got[0] != (Ancestor{1, "a"}) || got[1] != (Ancestor{2, "b"}) {
		t.Fatalf("Ancestors() = %+v", got)
	}
	if !rec.HasParent() {
		t.Fatal("HasParent() must be true")
	}
	if NewReferralRecord("x").HasParent() {
		t.Fatal("fresh record must have no parent")
	}
}

func TestNewReferralRecordDefaults(t *testing.T) {
	rec := NewReferralRecord("7")
	for level := 1; level <= MaxReferralLevel; level++ {
		if l := rec.Referrals(level); l == nil || len(l) != 0 {
			t.Fatalf("level %d list must be empty and non-nil, got %#v", level, l)
		}
	}
	if !rec.Earned.IsZero() || !rec.Volume.IsZero() {
		t.Fatal("earned and volume must start at zero")
	}
}

func TestParseCommissionSchedule(t *testing.T) {
	s, err := ParseCommissionSchedule("0.10, 0.05,0.02")
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultCommissionSchedule()
	for level := 1; level <= MaxReferralLevel; level++ {
		if !s.Rate(level).Equal(want.Rate(level)) {
			t.Fatalf("level %d rate = %s, want %s", level, s.Rate(level), want.Rate(level))
		}
	}

	partial, err := ParseCommissionSchedule("0.2")
	if err != nil {
		t.Fatal(err)
	}
	if !partial.Rate(2).IsZero() {
		t.Fatal("missing levels must earn nothing")
	}

	for _, bad := range []string{"", "x", "1.5", "-0.1", "0.1,0.1,0.1,0.1"} {
		if _, err := ParseCommissionSchedule(bad); !errors.Is(err, ErrInvalidSchedule) {
			t.Errorf("ParseCommissionSchedule(%q) = %v, want ErrInvalidSchedule", bad, err)
		}
	}
}

func TestCommissionScheduleValidateLevels(t *testing.T) {
	s := CommissionSchedule{4: decimal.RequireFromString("0.01")}
	if err := s.Validate(); !errors.Is(err, ErrInvalidSchedule) {
		t.Fatalf("level 4 must be rejected, got %v", err)
	}
}

func TestAccrualReportHelpers(t *testing.T) {
	r := AccrualReport{Outcomes: []AccrualOutcome{
		{Level: 1, Status: AccrualApplied},
		{Level: 2, Status: AccrualFailed},
		{Level: 3, Status: AccrualMissing},
	}}
	if f := r.Failed(); len(f) != 1 || f[0].Level != 2 {
		t.Fatalf("Failed() = %+v", f)
	}
	if r.Count(AccrualApplied) != 1 || r.Count(AccrualMissing) != 1 {
		t.Fatal("Count mismatch")
	}
}
