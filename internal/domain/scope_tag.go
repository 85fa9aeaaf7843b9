package domain

// ScopeTag is the availability badge computed for an integration from its
// dependency state.
type ScopeTag string

const (
	ScopeTagCore          ScopeTag = "core"
	ScopeTagPro           ScopeTag = "pro"
	ScopeTagElite         ScopeTag = "elite"
	ScopeTagLocked        ScopeTag = "locked"
	ScopeTagSetupRequired ScopeTag = "setup-required"
	ScopeTagDeprecated    ScopeTag = "deprecated"
)

func NewScopeTag(raw string) (ScopeTag, error) {
	switch ScopeTag(raw) {
	case ScopeTagCore, ScopeTagPro, ScopeTagElite, ScopeTagLocked, ScopeTagSetupRequired, ScopeTagDeprecated:
		return ScopeTag(raw), nil
	}
	return "", NewValidationError("scope_tag", "unknown tag "+raw)
}

func (t ScopeTag) String() string { return string(t) }
