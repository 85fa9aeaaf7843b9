package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/fields"
)

// FilterCondition is one comparison inside a filter block. Token names a
// code in the run's token context.
type FilterCondition struct {
	Token    string `json:"token"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type filterConfig struct {
	Conditions []FilterCondition `json:"conditions"`
}

type delayConfig struct {
	Seconds int `json:"seconds"`
}

type loopConfig struct {
	SourceToken string      `json:"source_token"`
	StepIDs     []uuid.UUID `json:"step_ids"`
}

// evaluateFilter applies every condition; all must hold for the run to
// proceed. An unknown operator is a configuration error.
func evaluateFilter(block *domain.RecipeBlock, ctx map[string]fields.FieldValue) (bool, error) {
	var cfg filterConfig
	if len(block.Config) > 0 {
		if err := json.Unmarshal(block.Config, &cfg); err != nil {
			return false, fmt.Errorf("filter block %s: %w", block.ID, err)
		}
	}
	for _, cond := range cfg.Conditions {
		actual := ctx[cond.Token].Value
		if actual == "" {
			actual = ctx[cond.Token].Readable
		}
		ok, err := compare(actual, cond.Operator, cond.Value)
		if err != nil {
			return false, fmt.Errorf("filter block %s: %w", block.ID, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func compare(actual, operator, expected string) (bool, error) {
	switch operator {
	case "equals":
		return actual == expected, nil
	case "not-equals":
		return actual != expected, nil
	case "contains":
		return expected != "" && strings.Contains(actual, expected), nil
	case "greater-than", "less-than":
		a, errA := strconv.ParseFloat(actual, 64)
		b, errB := strconv.ParseFloat(expected, 64)
		if errA != nil || errB != nil {
			return false, fmt.Errorf("numeric comparison on non-numeric values %q, %q", actual, expected)
		}
		if operator == "greater-than" {
			return a > b, nil
		}
		return a < b, nil
	}
	return false, fmt.Errorf("unknown operator %q", operator)
}

// loopItems parses the loop source token's value as a JSON array of flat
// field maps, one iteration per element.
func loopItems(block *domain.RecipeBlock, ctx map[string]fields.FieldValue) (loopConfig, []map[string]string, error) {
	var cfg loopConfig
	if len(block.Config) > 0 {
		if err := json.Unmarshal(block.Config, &cfg); err != nil {
			return cfg, nil, fmt.Errorf("loop block %s: %w", block.ID, err)
		}
	}
	if cfg.SourceToken == "" {
		return cfg, nil, fmt.Errorf("loop block %s: source_token is not set", block.ID)
	}
	raw := ctx[cfg.SourceToken].Value
	if raw == "" {
		return cfg, nil, nil
	}
	var items []map[string]string
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return cfg, nil, fmt.Errorf("loop block %s: source token %s is not a JSON array: %w", block.ID, cfg.SourceToken, err)
	}
	return cfg, items, nil
}

func delaySeconds(block *domain.RecipeBlock) (int, error) {
	var cfg delayConfig
	if len(block.Config) > 0 {
		if err := json.Unmarshal(block.Config, &cfg); err != nil {
			return 0, fmt.Errorf("delay block %s: %w", block.ID, err)
		}
	}
	if cfg.Seconds < 0 {
		return 0, fmt.Errorf("delay block %s: negative delay", block.ID)
	}
	return cfg.Seconds, nil
}
