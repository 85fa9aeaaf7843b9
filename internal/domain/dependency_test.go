package domain

import "testing"

func TestNewDependencyCta(t *testing.T) {
	cases := []struct {
		name    string
		ctaType string
		label   string
		url     string
		wantErr bool
	}{
		{name: "external_with_url", ctaType: "link-external", label: "Upgrade", url: "https://example.com/upgrade", wantErr: false},
		{name: "external_requires_url", ctaType: "link-external", label: "Upgrade", url: "", wantErr: true},
		{name: "external_rejects_relative", ctaType: "link-external", label: "Upgrade", url: "/upgrade", wantErr: true},
		{name: "external_rejects_ftp", ctaType: "link-external", url: "ftp://example.com", wantErr: true},
		{name: "internal_with_path", ctaType: "link-internal", label: "Connect", url: "/settings/slack", wantErr: false},
		{name: "internal_requires_url", ctaType: "link-internal", label: "Connect", url: "", wantErr: true},
		{name: "modal_bare", ctaType: "modal", label: "Learn more", wantErr: false},
		{name: "none_bare", ctaType: "none", wantErr: false},
		{name: "none_forbids_label", ctaType: "none", label: "x", wantErr: true},
		{name: "none_forbids_url", ctaType: "none", url: "/x", wantErr: true},
		{name: "unknown_type", ctaType: "popup", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewDependencyCta(tc.ctaType, tc.label, tc.url)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDependencyCtaMapRoundTrip(t *testing.T) {
	cta, err := NewDependencyCta("link-external", "Upgrade to Pro", "https://example.com/pricing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := DependencyCtaFromMap(cta.ToMap())
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if back != cta {
		t.Fatalf("round trip mismatch: %+v != %+v", back, cta)
	}
}

func TestLicensePlanAbove(t *testing.T) {
	if !PlanElite.Above(PlanPro) {
		t.Fatal("elite should rank above pro")
	}
	if !PlanPro.Above(PlanFree) {
		t.Fatal("pro should rank above free")
	}
	if PlanFree.Above(PlanFree) {
		t.Fatal("free should not rank above itself")
	}
	if PlanPro.Above(PlanElite) {
		t.Fatal("pro should not rank above elite")
	}
}
