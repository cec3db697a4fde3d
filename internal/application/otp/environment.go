package otp

import (
	"errors"
	"strings"
)

// DefaultTestCode is the bypass code used when none is configured
const DefaultTestCode = "123456"

// ErrBypassInProduction is returned when a production-like environment is
// configured with the test bypass enabled
var ErrBypassInProduction = errors.New("otp: test bypass must be disabled in production")

// Environment is the runtime environment the OTP services are built for.
// It is fixed at construction; nothing reads the bypass flag ad hoc.
type Environment struct {
	name     string
	bypass   bool
	testCode string
}

// NewEnvironment validates the bypass settings for the named environment
func NewEnvironment(name string, bypassEnabled bool, testCode string) (Environment, error) {
	env := Environment{
		name:     strings.ToLower(strings.TrimSpace(name)),
		bypass:   bypassEnabled,
		testCode: strings.TrimSpace(testCode),
	}
	if env.testCode == "" {
		env.testCode = DefaultTestCode
	}
	if env.bypass && env.IsProductionLike() {
		return Environment{}, ErrBypassInProduction
	}
	return env, nil
}

// Name returns the normalized environment name
func (e Environment) Name() string {
	return e.name
}

// IsProductionLike reports whether the environment is prod or production
func (e Environment) IsProductionLike() bool {
	return e.name == "prod" || e.name == "production"
}

// BypassEnabled reports whether the test code is accepted
func (e Environment) BypassEnabled() bool {
	return e.bypass && !e.IsProductionLike()
}

// MatchesTestCode reports whether code is the active test bypass code
func (e Environment) MatchesTestCode(code string) bool {
	return e.BypassEnabled() && code == e.testCode
}
