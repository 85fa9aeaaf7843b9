package scopetag

import (
	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

// Chain evaluates resolvers in fixed order; the first resolver whose
// ShouldEvaluate accepts decides the tag. Flat walk, no recursion.
type Chain struct {
	log       *logger.Logger
	resolvers []Resolver
}

// NewChain builds the standard chain: deprecated, license, plugin,
// account. Order is part of the contract.
func NewChain(baseLog *logger.Logger, upgradeURL string) *Chain {
	return &Chain{
		log: baseLog.With("component", "ScopeTagChain"),
		resolvers: []Resolver{
			DeprecatedResolver{},
			LicenseResolver{UpgradeURL: upgradeURL},
			PluginResolver{},
			AccountResolver{},
		},
	}
}

func (c *Chain) Resolve(req Request) (Resolution, error) {
	for _, r := range c.resolvers {
		if !r.ShouldEvaluate(req) {
			continue
		}
		res, err := r.Evaluate(req)
		if err != nil {
			c.log.Error("resolver failed", "resolver", r.Name(), "integration", req.Integration.String(), "error", err)
			return Resolution{}, err
		}
		c.log.Debug("scope tag resolved", "resolver", r.Name(), "integration", req.Integration.String(), "tag", res.Tag.String())
		return res, nil
	}
	return Resolution{Tag: domain.ScopeTagCore}, nil
}
