// Package scopetag computes the availability badge for an integration
// from its dependency list and the current site state.
package scopetag

import (
	"strconv"
	"strings"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
)

type PluginState struct {
	Installed bool
	Active    bool
	Version   string
}

// SiteState is everything the resolvers may consult: license plan,
// installed plugins, and which integrations have a connected account.
type SiteState struct {
	Plan              domain.LicensePlan
	Plugins           map[string]PluginState
	ConnectedAccounts map[string]bool
}

// Request is one resolution question: which integration, its declared
// dependencies, and the site state to judge them against.
type Request struct {
	Integration domain.Code
	Deps        []domain.Dependency
	Site        SiteState
}

type Resolution struct {
	Tag domain.ScopeTag       `json:"tag"`
	Cta *domain.DependencyCta `json:"cta,omitempty"`
}

// Resolver inspects a dependency list. ShouldEvaluate gates Evaluate;
// the chain never calls Evaluate on a resolver that declined.
type Resolver interface {
	Name() string
	ShouldEvaluate(req Request) bool
	Evaluate(req Request) (Resolution, error)
}

// DeprecatedResolver wins over everything else: a deprecated dependency
// hides upgrade and setup prompts.
type DeprecatedResolver struct{}

func (DeprecatedResolver) Name() string { return "deprecated" }

func (DeprecatedResolver) ShouldEvaluate(req Request) bool {
	for _, d := range req.Deps {
		if d.Deprecated {
			return true
		}
	}
	return false
}

func (DeprecatedResolver) Evaluate(Request) (Resolution, error) {
	return Resolution{Tag: domain.ScopeTagDeprecated}, nil
}

// LicenseResolver tags integrations whose required plan sits above the
// site's plan and points at the upgrade page.
type LicenseResolver struct {
	UpgradeURL string
}

func (LicenseResolver) Name() string { return "license" }

func (r LicenseResolver) ShouldEvaluate(req Request) bool {
	for _, d := range req.Deps {
		if d.Kind == domain.DependencyLicense && d.RequiredPlan.Above(req.Site.Plan) {
			return true
		}
	}
	return false
}

func (r LicenseResolver) Evaluate(req Request) (Resolution, error) {
	required := req.Site.Plan
	for _, d := range req.Deps {
		if d.Kind == domain.DependencyLicense && d.RequiredPlan.Above(required) {
			required = d.RequiredPlan
		}
	}
	tag := domain.ScopeTagPro
	label := "Upgrade to Pro"
	if required == domain.PlanElite {
		tag = domain.ScopeTagElite
		label = "Upgrade to Elite"
	}
	cta, err := domain.NewDependencyCta(string(domain.CtaLinkExternal), label, r.UpgradeURL)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Tag: tag, Cta: &cta}, nil
}

// PluginResolver tags integrations whose companion plugin is missing,
// inactive, or older than the minimum version.
type PluginResolver struct{}

func (PluginResolver) Name() string { return "plugin" }

func (PluginResolver) ShouldEvaluate(req Request) bool {
	return firstBlockedPlugin(req) != nil
}

func (PluginResolver) Evaluate(req Request) (Resolution, error) {
	dep := firstBlockedPlugin(req)
	if dep == nil {
		return Resolution{Tag: domain.ScopeTagCore}, nil
	}
	state := req.Site.Plugins[dep.PluginSlug]
	label := "Install " + dep.PluginSlug
	switch {
	case state.Installed && !state.Active:
		label = "Activate " + dep.PluginSlug
	case state.Installed && state.Active:
		label = "Update " + dep.PluginSlug
	}
	cta, err := domain.NewDependencyCta(string(domain.CtaLinkInternal), label, "/plugins/"+dep.PluginSlug)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Tag: domain.ScopeTagLocked, Cta: &cta}, nil
}

func firstBlockedPlugin(req Request) *domain.Dependency {
	for i, d := range req.Deps {
		if d.Kind != domain.DependencyPlugin {
			continue
		}
		state, ok := req.Site.Plugins[d.PluginSlug]
		if !ok || !state.Installed || !state.Active {
			return &req.Deps[i]
		}
		if d.PluginMinVersion != "" && versionLess(state.Version, d.PluginMinVersion) {
			return &req.Deps[i]
		}
	}
	return nil
}

// AccountResolver tags integrations that require a connected account
// when none is connected for that integration.
type AccountResolver struct{}

func (AccountResolver) Name() string { return "account" }

func (AccountResolver) ShouldEvaluate(req Request) bool {
	required := false
	for _, d := range req.Deps {
		if d.Kind == domain.DependencyAccount && d.AccountRequired {
			required = true
		}
	}
	return required && !req.Site.ConnectedAccounts[req.Integration.String()]
}

func (AccountResolver) Evaluate(req Request) (Resolution, error) {
	cta, err := domain.NewDependencyCta(string(domain.CtaLinkInternal), "Connect your account", "/settings/accounts/"+strings.ToLower(req.Integration.String()))
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Tag: domain.ScopeTagSetupRequired, Cta: &cta}, nil
}

// versionLess compares dotted numeric versions segment by segment.
// Non-numeric segments compare lexically.
func versionLess(a, b string) bool {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var sa, sb string
		if i < len(as) {
			sa = as[i]
		}
		if i < len(bs) {
			sb = bs[i]
		}
		na, errA := strconv.Atoi(sa)
		nb, errB := strconv.Atoi(sb)
		if errA == nil && errB == nil {
			if na != nb {
				return na < nb
			}
			continue
		}
		if sa != sb {
			return sa < sb
		}
	}
	return false
}
