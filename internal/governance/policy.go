package governance

import (
	"context"
	"fmt"
	"regexp"
)

// Effect defines the result of a policy evaluation.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Request describes a plan step about to be executed.
type Request struct {
	Identity string
	Method   string
}

// Result contains the outcome of a policy evaluation.
type Result struct {
	Effect Effect
	Reason string
}

// PolicyEngine evaluates plan steps against a set of rules.
type PolicyEngine interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// DefaultPolicyEngine denies methods by exact name or by pattern.
type DefaultPolicyEngine struct {
	DeniedMethods map[string]bool
	DeniedRegex   []*regexp.Regexp
}

func NewDefaultPolicyEngine() *DefaultPolicyEngine {
	return &DefaultPolicyEngine{
		DeniedMethods: make(map[string]bool),
		DeniedRegex:   make([]*regexp.Regexp, 0),
	}
}

func (e *DefaultPolicyEngine) DenyMethod(name string) {
	e.DeniedMethods[name] = true
}

// DenyPattern rejects any method whose qualified name "identity.method"
// matches pattern.
func (e *DefaultPolicyEngine) DenyPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	e.DeniedRegex = append(e.DeniedRegex, re)
	return nil
}

func (e *DefaultPolicyEngine) Evaluate(ctx context.Context, req Request) (Result, error) {
	if e.DeniedMethods[req.Method] {
		return Result{
			Effect: EffectDeny,
			Reason: fmt.Sprintf("method '%s' is restricted by system policy", req.Method),
		}, nil
	}

	qualified := req.Identity + "." + req.Method
	for _, re := range e.DeniedRegex {
		if re.MatchString(qualified) {
			return Result{
				Effect: EffectDeny,
				Reason: fmt.Sprintf("method matches restricted pattern: %s", re.String()),
			}, nil
		}
	}

	return Result{
		Effect: EffectAllow,
		Reason: "approved by default policy",
	}, nil
}
