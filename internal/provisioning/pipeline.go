package provisioning

import (
	"fmt"
	"time"

	"github.com/imamik/vnfstack/internal/metrics"
)

// Pipeline runs phases in order and stops at the first failure. Resources
// created by earlier phases are left in place.
type Pipeline struct {
	Phases []Phase
}

// NewPipeline creates a pipeline of the given phases.
func NewPipeline(phases ...Phase) *Pipeline {
	return &Pipeline{Phases: phases}
}

// Run executes the phases against ctx. A canceled context stops the
// pipeline before the next phase starts.
func (p *Pipeline) Run(ctx *Context) error {
	start := time.Now()
	env := "environment"
	if ctx.Config != nil {
		env = ctx.Config.Name
	}
	ctx.Observer.Printf("Starting provisioning of %s with %d phases...", env, len(p.Phases))

	for i, phase := range p.Phases {
		if ctx.Context != nil && ctx.Err() != nil {
			return fmt.Errorf("%s phase not started: %w", phase.Name(), ctx.Err())
		}
		if err := runPhase(ctx, phase, fmt.Sprintf("%s (%d/%d)", phase.Name(), i+1, len(p.Phases))); err != nil {
			return err
		}
	}

	ctx.Observer.Printf("Provisioning completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}

func runPhase(ctx *Context, phase Phase, label string) error {
	LogPhaseStart(ctx.Observer, label)
	start := time.Now()
	err := phase.Provision(ctx)
	metrics.ObservePhase(phase.Name(), time.Since(start), err)
	if err != nil {
		LogPhaseFailed(ctx.Observer, label, err)
		return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
	}
	LogPhaseComplete(ctx.Observer, label, time.Since(start))
	return nil
}
