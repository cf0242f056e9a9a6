package kconfig

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/bolinfest/kata-landlock/pkg/errors"
)

// ExpectedLSM is the LSM stack the derived guest kernel config must carry.
// Landlock leads the list so sandboxed workloads can self-restrict.
const ExpectedLSM = "landlock,lockdown,yama,loadpin,safesetid,integrity,bpf,apparmor"

// Expectation is a post-condition on a derived sequence: the key must be
// present with exactly this value.
type Expectation struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

// RuleSet bundles the overrides to apply with the expectations to verify
// afterward. Overrides apply in declaration order; a later override may
// anchor on a line inserted by an earlier one.
type RuleSet struct {
	Overrides []Override    `yaml:"overrides"`
	Expect    []Expectation `yaml:"expect,omitempty"`
}

// DefaultRuleSet returns the built-in Landlock rule set used to derive the
// vendored config from upstream.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Overrides: []Override{
			{Key: "CONFIG_SECURITY", Value: "y"},
			{Key: "CONFIG_SECURITY_LANDLOCK", Value: "y", InsertAfter: "CONFIG_SECURITY"},
			{Key: "CONFIG_LSM", Value: `"` + ExpectedLSM + `"`},
		},
		Expect: []Expectation{
			{Key: "CONFIG_LSM", Value: ExpectedLSM},
		},
	}
}

// LoadRuleSet reads a rule set manifest from a YAML file.
func LoadRuleSet(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, errors.WrapIO("read", path, err)
	}

	var rules RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RuleSet{}, errors.WrapParse("yaml", path, err)
	}
	if err := rules.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rules, nil
}

// Validate checks the rule set for structural problems.
func (r RuleSet) Validate() error {
	if len(r.Overrides) == 0 {
		return &errors.ValidationError{Field: "overrides", Message: "rule set has no overrides"}
	}
	for i, o := range r.Overrides {
		if o.Key == "" {
			return &errors.ValidationError{Field: "overrides", Value: i, Message: "override has an empty key"}
		}
	}
	for i, e := range r.Expect {
		if e.Key == "" {
			return &errors.ValidationError{Field: "expect", Value: i, Message: "expectation has an empty key"}
		}
	}
	return nil
}

// Verify runs every expectation against the derived sequence, returning the
// first violation.
func (r RuleSet) Verify(derived Lines) error {
	for _, e := range r.Expect {
		if err := ExpectValue(derived, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}
