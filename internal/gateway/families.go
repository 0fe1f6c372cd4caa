// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import "strings"

// =============================================================================
// MODEL FAMILIES
// =============================================================================

// Family describes how one class of models accepts request parameters.
// Shaping is data-driven: a parameter bag is adjusted by Overrides,
// Renames, and the Supported filter, in that order. Adding a family is
// a table entry, not a new code path.
type Family struct {
	// Tag names the family ("general", "reasoning").
	Tag string
	// Supported lists the parameter keys the family accepts. The model
	// key itself always survives filtering.
	Supported map[string]bool
	// Renames maps general parameter keys to the family's equivalents.
	Renames map[string]string
	// Overrides forces fixed values onto parameters before renaming.
	Overrides map[string]any
}

// reasoningPrefixes identify reasoning-tier models by identifier prefix.
var reasoningPrefixes = []string{"o1", "o3"}

var generalFamily = Family{
	Tag: "general",
	Supported: map[string]bool{
		"temperature":       true,
		"max_tokens":        true,
		"top_p":             true,
		"frequency_penalty": true,
		"presence_penalty":  true,
	},
}

// Reasoning models reject sampling knobs: temperature is pinned to 1,
// the length cap is named max_completion_tokens, everything else is
// dropped.
var reasoningFamily = Family{
	Tag: "reasoning",
	Supported: map[string]bool{
		"temperature":           true,
		"max_completion_tokens": true,
	},
	Renames: map[string]string{
		"max_tokens": "max_completion_tokens",
	},
	Overrides: map[string]any{
		"temperature": 1.0,
	},
}

// Classify returns the parameter family for a model identifier.
func Classify(model string) Family {
	for _, prefix := range reasoningPrefixes {
		if strings.HasPrefix(model, prefix) {
			return reasoningFamily
		}
	}
	return generalFamily
}

// BuildParams shapes the configured request parameters for the target
// model and returns the final wire-level parameter bag, including the
// "model" key. modelOverride, when non-empty, replaces the configured
// model and drives family selection.
func BuildParams(p RequestParams, modelOverride string) map[string]any {
	model := p.Model
	if modelOverride != "" {
		model = modelOverride
	}
	family := Classify(model)

	params := map[string]any{
		"temperature":       p.Temperature,
		"max_tokens":        int64(p.MaxTokens),
		"top_p":             p.TopP,
		"frequency_penalty": p.FrequencyPenalty,
		"presence_penalty":  p.PresencePenalty,
	}

	// Overrides first, then renames, then the supported-key filter.
	for key, value := range family.Overrides {
		params[key] = value
	}
	for from, to := range family.Renames {
		if value, ok := params[from]; ok {
			delete(params, from)
			params[to] = value
		}
	}
	for key := range params {
		if !family.Supported[key] {
			delete(params, key)
		}
	}

	params["model"] = model
	return params
}

// RequestParams are the tunable model request parameters, before family
// shaping.
type RequestParams struct {
	Model            string
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}
