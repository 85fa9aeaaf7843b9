package domain

import (
	"net/url"
	"strings"
)

type DependencyKind string

const (
	DependencyLicense DependencyKind = "license"
	DependencyPlugin  DependencyKind = "plugin"
	DependencyAccount DependencyKind = "account"
)

type LicensePlan string

const (
	PlanFree  LicensePlan = "free"
	PlanPro   LicensePlan = "pro"
	PlanElite LicensePlan = "elite"
)

// planRank orders license plans so "required plan above current plan"
// is a single comparison.
func planRank(p LicensePlan) int {
	switch p {
	case PlanElite:
		return 2
	case PlanPro:
		return 1
	default:
		return 0
	}
}

func (p LicensePlan) Above(other LicensePlan) bool {
	return planRank(p) > planRank(other)
}

// Dependency describes one precondition an integration needs before its
// steps are usable. Only the fields for its Kind are meaningful.
type Dependency struct {
	Kind       DependencyKind `json:"kind"`
	Deprecated bool           `json:"deprecated,omitempty"`

	// license
	RequiredPlan LicensePlan `json:"required_plan,omitempty"`

	// plugin
	PluginSlug       string `json:"plugin_slug,omitempty"`
	PluginMinVersion string `json:"plugin_min_version,omitempty"`

	// account
	AccountRequired bool `json:"account_required,omitempty"`
}

func NewDependency(kind string) (Dependency, error) {
	switch DependencyKind(kind) {
	case DependencyLicense, DependencyPlugin, DependencyAccount:
		return Dependency{Kind: DependencyKind(kind)}, nil
	}
	return Dependency{}, NewValidationError("dependency", "unknown kind "+kind)
}

type CtaType string

const (
	CtaLinkExternal CtaType = "link-external"
	CtaLinkInternal CtaType = "link-internal"
	CtaModal        CtaType = "modal"
	CtaNone         CtaType = "none"
)

// DependencyCta is the call-to-action attached to a resolved scope tag,
// telling the client how to clear the blocking dependency.
type DependencyCta struct {
	Type  CtaType `json:"type"`
	Label string  `json:"label,omitempty"`
	URL   string  `json:"url,omitempty"`
}

func NewDependencyCta(ctaType, label, rawURL string) (DependencyCta, error) {
	t := CtaType(ctaType)
	switch t {
	case CtaLinkExternal, CtaLinkInternal:
		if strings.TrimSpace(rawURL) == "" {
			return DependencyCta{}, NewValidationError("cta", string(t)+" requires url")
		}
		if t == CtaLinkExternal {
			u, err := url.Parse(rawURL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return DependencyCta{}, NewValidationError("cta", "link-external requires an absolute http(s) url")
			}
		}
	case CtaModal:
		// label optional, url unused
	case CtaNone:
		if label != "" || rawURL != "" {
			return DependencyCta{}, NewValidationError("cta", "none forbids label and url")
		}
	default:
		return DependencyCta{}, NewValidationError("cta", "unknown type "+ctaType)
	}
	return DependencyCta{Type: t, Label: label, URL: rawURL}, nil
}

func (c DependencyCta) ToMap() map[string]any {
	m := map[string]any{"type": string(c.Type)}
	if c.Label != "" {
		m["label"] = c.Label
	}
	if c.URL != "" {
		m["url"] = c.URL
	}
	return m
}

func DependencyCtaFromMap(m map[string]any) (DependencyCta, error) {
	get := func(k string) string {
		if v, ok := m[k].(string); ok {
			return v
		}
		return ""
	}
	return NewDependencyCta(get("type"), get("label"), get("url"))
}
