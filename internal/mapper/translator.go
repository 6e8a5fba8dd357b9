// Package mapper transforms source tasks into target work-package payloads.
// Field-level mapping is pluggable through the Translator capability so new
// field mappings can be added without touching orchestration.
package mapper

import (
	"github.com/mesh-intelligence/opsync/pkg/types"
)

// Translator converts source field values to target identifiers. A value
// with no configured equivalent and no default yields a
// *types.UnmappableFieldError.
type Translator interface {
	// TranslateStatus maps a source status name to a target status ID.
	TranslateStatus(source string) (string, error)
	// TranslateType maps a source task type to a target type ID.
	TranslateType(source string) (string, error)
	// TranslateUser maps a source user ID to a target user ID. It consults
	// only configured overrides; API-backed resolution is the engine's job.
	TranslateUser(sourceID string) (int64, error)
}

// RuleTranslator is the config-driven Translator: lookup tables with
// optional defaults, composed at engine construction.
type RuleTranslator struct {
	rules types.MappingRules
}

var _ Translator = (*RuleTranslator)(nil)

// NewRuleTranslator builds a Translator from configured mapping rules.
func NewRuleTranslator(rules types.MappingRules) *RuleTranslator {
	return &RuleTranslator{rules: rules}
}

func (rt *RuleTranslator) TranslateStatus(source string) (string, error) {
	if id, ok := rt.rules.Status[source]; ok {
		return id, nil
	}
	if rt.rules.DefaultStatus != "" {
		return rt.rules.DefaultStatus, nil
	}
	return "", &types.UnmappableFieldError{Field: "status", Value: source}
}

func (rt *RuleTranslator) TranslateType(source string) (string, error) {
	if id, ok := rt.rules.Type[source]; ok {
		return id, nil
	}
	if rt.rules.DefaultType != "" {
		return rt.rules.DefaultType, nil
	}
	return "", &types.UnmappableFieldError{Field: "type", Value: source}
}

func (rt *RuleTranslator) TranslateUser(sourceID string) (int64, error) {
	if id, ok := rt.rules.Users[sourceID]; ok {
		return id, nil
	}
	return 0, &types.UnmappableFieldError{Field: "user", Value: sourceID}
}
