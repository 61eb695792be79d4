package params

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// UnpermittedAction selects what a permit call does with keys the filters
// did not cover.
type UnpermittedAction string

const (
	// UnpermittedNone drops undeclared keys silently.
	UnpermittedNone UnpermittedAction = ""
	// UnpermittedLog drops undeclared keys and reports them through the
	// policy handler or logger.
	UnpermittedLog UnpermittedAction = "log"
	// UnpermittedRaise fails the permit call with an
	// UnpermittedParametersError.
	UnpermittedRaise UnpermittedAction = "raise"
)

// UnmarshalText parses the textual policy values "", "off", "log" and
// "raise", case-insensitively.
func (a *UnpermittedAction) UnmarshalText(text []byte) error {
	switch s := strings.ToLower(strings.TrimSpace(string(text))); s {
	case "", "off":
		*a = UnpermittedNone
	case string(UnpermittedLog):
		*a = UnpermittedLog
	case string(UnpermittedRaise):
		*a = UnpermittedRaise
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
	return nil
}

// Policy is the process-wide configuration for handling unpermitted keys.
// AlwaysPermitted names keys that routing layers inject into every request
// and that should never count as unpermitted. When OnUnpermitted is
// UnpermittedLog, Handler receives the rejected keys; with no Handler the
// keys go to Logger (or slog.Default) at warn level.
type Policy struct {
	OnUnpermitted   UnpermittedAction
	AlwaysPermitted []string
	Handler         func(keys []string)
	Logger          *slog.Logger
}

type policyEnv struct {
	OnUnpermitted   UnpermittedAction `env:"PARAMS_ON_UNPERMITTED" envDefault:""`
	AlwaysPermitted []string          `env:"PARAMS_ALWAYS_PERMITTED" envDefault:"controller,action"`
}

var (
	policyMu      sync.RWMutex
	currentPolicy = DefaultPolicy()

	defaultEnvLoaded sync.Once
)

// DefaultPolicy returns the policy a fresh process runs with: undeclared
// keys are dropped silently and the conventional routing keys are always
// permitted.
func DefaultPolicy() Policy {
	return Policy{
		OnUnpermitted:   UnpermittedNone,
		AlwaysPermitted: []string{"controller", "action"},
	}
}

// SetPolicy replaces the process-wide policy. Typically called once during
// startup, before requests are served.
func SetPolicy(p Policy) {
	p.AlwaysPermitted = slices.Clone(p.AlwaysPermitted)
	policyMu.Lock()
	currentPolicy = p
	policyMu.Unlock()
}

// CurrentPolicy returns a copy of the process-wide policy.
func CurrentPolicy() Policy {
	policyMu.RLock()
	p := currentPolicy
	policyMu.RUnlock()
	p.AlwaysPermitted = slices.Clone(p.AlwaysPermitted)
	return p
}

// LoadPolicy builds a policy from the environment. It loads the default
// .env file once per process (missing files are fine), then reads
// PARAMS_ON_UNPERMITTED and PARAMS_ALWAYS_PERMITTED (comma-separated).
// The result is returned, not installed; pass it to SetPolicy.
func LoadPolicy() (Policy, error) {
	defaultEnvLoaded.Do(func() {
		// Ignore errors - the .env file might not exist and that's ok
		_ = godotenv.Load()
	})

	var cfg policyEnv
	if err := env.Parse(&cfg); err != nil {
		return Policy{}, errors.Join(ErrInvalidPolicy, err)
	}

	policy := DefaultPolicy()
	policy.OnUnpermitted = cfg.OnUnpermitted
	if cfg.AlwaysPermitted != nil {
		policy.AlwaysPermitted = cfg.AlwaysPermitted
	}
	return policy, nil
}

// dispatch reports rejected keys for the log action. Handler panics are
// recovered so a faulty handler cannot abort the permit call.
func (p Policy) dispatch(keys []string) {
	defer func() {
		_ = recover()
	}()

	if p.Handler != nil {
		p.Handler(slices.Clone(keys))
		return
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("unpermitted parameters", slog.Any("keys", keys))
}
