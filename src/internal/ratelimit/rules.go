package ratelimit

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/teamboard/teamboard/src/internal/auth"
)

// Operation is the closed set of rate-limited backup operations. Keeping
// this an enum catches typos in rule wiring at compile time.
type Operation string

const (
	OperationCreate   Operation = "create"
	OperationList     Operation = "list"
	OperationDownload Operation = "download"
	OperationDelete   Operation = "delete"
	OperationValidate Operation = "validate"
	OperationCleanup  Operation = "cleanup"
)

// ParseOperation converts a string into a known operation
func ParseOperation(s string) (Operation, error) {
	switch Operation(s) {
	case OperationCreate, OperationList, OperationDownload,
		OperationDelete, OperationValidate, OperationCleanup:
		return Operation(s), nil
	}
	return "", fmt.Errorf("unknown operation: %q", s)
}

// Rule is one admission limit: at most MaxRequests per Window
type Rule struct {
	Window      time.Duration
	MaxRequests int
}

// RuleKey identifies the rule for a (role, operation) pair
type RuleKey struct {
	Role      auth.Role
	Operation Operation
}

// Rules maps (role, operation) pairs to limits. A pair with no rule is
// unlimited; default-allow is deliberate, not a gap.
type Rules map[RuleKey]Rule

// DefaultRules returns the compiled-in limit table
func DefaultRules() Rules {
	return Rules{
		{auth.RoleAdmin, OperationCreate}:     {Window: time.Hour, MaxRequests: 10},
		{auth.RoleAdmin, OperationDownload}:   {Window: time.Hour, MaxRequests: 30},
		{auth.RoleAdmin, OperationDelete}:     {Window: time.Hour, MaxRequests: 20},
		{auth.RoleAdmin, OperationCleanup}:    {Window: time.Hour, MaxRequests: 5},
		{auth.RoleManager, OperationDownload}: {Window: time.Hour, MaxRequests: 10},
		{auth.RoleManager, OperationList}:     {Window: time.Minute, MaxRequests: 60},
		{auth.RoleViewer, OperationList}:      {Window: time.Minute, MaxRequests: 30},
	}
}

// RulesFromConfig reads the limit table from configuration, falling back to
// the compiled-in defaults when no rules are configured. Expected shape:
//
//	ratelimit:
//	  rules:
//	    - role: admin
//	      operation: download
//	      window: 1h
//	      max_requests: 30
func RulesFromConfig(cfg *viper.Viper) (Rules, error) {
	raw := cfg.Get("ratelimit.rules")
	if raw == nil {
		return DefaultRules(), nil
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("ratelimit.rules must be a list")
	}

	rules := make(Rules, len(items))
	for i, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("ratelimit.rules[%d]: expected a map", i)
		}

		role := auth.Role(stringValue(entry["role"]))
		if !role.Valid() {
			return nil, fmt.Errorf("ratelimit.rules[%d]: invalid role %q", i, entry["role"])
		}

		op, err := ParseOperation(stringValue(entry["operation"]))
		if err != nil {
			return nil, fmt.Errorf("ratelimit.rules[%d]: %w", i, err)
		}

		window, err := time.ParseDuration(stringValue(entry["window"]))
		if err != nil || window <= 0 {
			return nil, fmt.Errorf("ratelimit.rules[%d]: invalid window %q", i, entry["window"])
		}

		max, ok := intValue(entry["max_requests"])
		if !ok || max <= 0 {
			return nil, fmt.Errorf("ratelimit.rules[%d]: invalid max_requests %v", i, entry["max_requests"])
		}

		rules[RuleKey{Role: role, Operation: op}] = Rule{Window: window, MaxRequests: max}
	}

	return rules, nil
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
