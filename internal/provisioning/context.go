package provisioning

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/provisioning/instance"
	"github.com/imamik/vnfstack/internal/util/labels"
)

// Context wraps all dependencies and state needed for a provisioning phase.
type Context struct {
	context.Context
	Config   *config.Config
	State    *State
	Provider cloud.Provider
	Prober   instance.Prober
	Observer Observer
	Logger   logr.Logger
	Timeouts *config.Timeouts

	// RunID identifies this invocation in resource labels.
	RunID string

	controller *instance.Controller
}

// ContextOption customizes a Context.
type ContextOption func(*Context)

// WithObserver replaces the console observer.
func WithObserver(o Observer) ContextOption {
	return func(c *Context) { c.Observer = o }
}

// WithLogger sets the logger handed to component code.
func WithLogger(l logr.Logger) ContextOption {
	return func(c *Context) { c.Logger = l }
}

// WithRunID sets the run ID instead of generating one.
func WithRunID(id string) ContextOption {
	return func(c *Context) { c.RunID = id }
}

// WithTimeouts overrides the environment's effective timeouts.
func WithTimeouts(t *config.Timeouts) ContextOption {
	return func(c *Context) { c.Timeouts = t }
}

// NewContext creates a new provisioning context.
func NewContext(
	ctx context.Context,
	cfg *config.Config,
	provider cloud.Provider,
	prober instance.Prober,
	opts ...ContextOption,
) *Context {
	c := &Context{
		Context:  ctx,
		Config:   cfg,
		State:    NewState(),
		Provider: provider,
		Prober:   prober,
		Observer: NewConsoleObserver(),
		Logger:   logr.Discard(),
		Timeouts: cfg.EffectiveTimeouts(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.RunID == "" {
		c.RunID = NewRunID()
	}
	return c
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Labels returns the labels every resource created by this run carries.
func (c *Context) Labels() map[string]string {
	return ResourceLabels(c.Config.Name, c.RunID)
}

// ResourceLabels returns the labels for resources of environment created by run.
func ResourceLabels(environment, runID string) map[string]string {
	return labels.NewLabelBuilder(environment).WithRunID(runID).Build()
}

// Controller returns the instance controller bound to this context. Status
// changes are reported to the observer.
func (c *Context) Controller() *instance.Controller {
	if c.controller == nil {
		c.controller = instance.NewController(c.Provider, c.Prober, instance.Settings{
			Timeouts: c.Timeouts,
			Logger:   c.Logger,
			OnTransition: func(name string, from, to cloud.ServerStatus) {
				LogInstanceStatus(c.Observer, name, from, to)
			},
		})
	}
	return c.controller
}
