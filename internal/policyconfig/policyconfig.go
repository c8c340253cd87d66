// Package policyconfig implements the per-portfolio usage catalog and the
// consumer/producer client-regex rules that gate document access, plus the
// regex-union evaluator itself.
package policyconfig

import (
	"encoding/json"
	"regexp"

	"github.com/systmms/secwallet/internal/secwerrors"
)

// Role distinguishes a consumer (read) rule set from a producer
// (create/update/delete) rule set.
type Role int

const (
	RoleConsumer Role = iota
	RoleProducer
)

// Usage declares a usage identifier and the document types it may gate.
type Usage struct {
	UsageID        string   `json:"usage_id"`
	SupportedTypes []string `json:"supported_types"`
}

// Rule maps a full-string client regex to a set of granted usage IDs.
type Rule struct {
	ClientRegex string   `json:"client_regex"`
	UsageIDs    []string `json:"usages"`

	compiled *regexp.Regexp
}

// wireConfig is the persisted per-portfolio configuration.json shape.
type wireConfig struct {
	PortfolioName string `json:"portfolio_name"`
	Usages        []Usage `json:"usages"`
	Consumers     []Rule  `json:"consumers"`
	Producers     []Rule  `json:"producers"`
}

// Config holds the compiled usage catalog and rule sets for one portfolio.
// Regexes are compiled once at load time and cached for the lifetime of the
// Config (spec.md §9: "cache compiled regexes per portfolio load").
type Config struct {
	PortfolioName string
	Usages        []Usage
	Consumers     []Rule
	Producers     []Rule
}

// ParseConfigs decodes the configuration.json array into one Config per
// portfolio, compiling and anchoring every client regex at load time.
func ParseConfigs(data []byte) ([]*Config, error) {
	var wire []wireConfig
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, secwerrors.New(secwerrors.SWSImpossibleToLoadPortfolio, err.Error())
	}

	configs := make([]*Config, 0, len(wire))
	for _, w := range wire {
		cfg, err := fromWire(w)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func fromWire(w wireConfig) (*Config, error) {
	consumers, err := compileRules(w.Consumers)
	if err != nil {
		return nil, err
	}
	producers, err := compileRules(w.Producers)
	if err != nil {
		return nil, err
	}
	return &Config{
		PortfolioName: w.PortfolioName,
		Usages:        w.Usages,
		Consumers:     consumers,
		Producers:     producers,
	}, nil
}

func compileRules(rules []Rule) ([]Rule, error) {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		// Anchor at both ends: matching is full-string (spec.md §3, §9).
		re, err := regexp.Compile("^(?:" + r.ClientRegex + ")$")
		if err != nil {
			return nil, secwerrors.New(secwerrors.SWSImpossibleToLoadPortfolio, "invalid client_regex: "+err.Error())
		}
		out[i] = Rule{ClientRegex: r.ClientRegex, UsageIDs: r.UsageIDs, compiled: re}
	}
	return out, nil
}

// AllowedUsages returns the union of usage_ids granted to sender under the
// given role: every matching rule's usage_ids, unioned (spec.md §4.6).
func (c *Config) AllowedUsages(sender string, role Role) map[string]struct{} {
	rules := c.Consumers
	if role == RoleProducer {
		rules = c.Producers
	}

	allowed := make(map[string]struct{})
	for _, r := range rules {
		if r.compiled != nil && r.compiled.MatchString(sender) {
			for _, u := range r.UsageIDs {
				allowed[u] = struct{}{}
			}
		}
	}
	return allowed
}

// HasUsage reports whether usageID is declared in the portfolio's usage catalog.
func (c *Config) HasUsage(usageID string) bool {
	for _, u := range c.Usages {
		if u.UsageID == usageID {
			return true
		}
	}
	return false
}

// SupportsType reports whether usageID's catalog entry lists docType among
// its supported_types.
func (c *Config) SupportsType(usageID, docType string) bool {
	for _, u := range c.Usages {
		if u.UsageID == usageID {
			for _, t := range u.SupportedTypes {
				if t == docType {
					return true
				}
			}
			return false
		}
	}
	return false
}
