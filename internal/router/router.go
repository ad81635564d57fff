// Package router implements the Router (C10): a pure decision function
// mapping a critique and attempt counters to REFINE or FINISH.
package router

import "github.com/deepaksaipendyala/quest/internal/model"

// Route decides whether the orchestrator should refine the current attempt
// or finish the run, applying the following precedence: the iteration
// budget, then stagnation, then a compile error needing repair, then
// whether coverage/mutation targets are met.
func Route(critique model.Critique, attemptsDone, maxIterations int) model.Route {
	if attemptsDone >= maxIterations {
		return model.RouteFinish
	}
	if critique.NoProgress {
		return model.RouteFinish
	}
	if critique.CompileError {
		return model.RouteRefine
	}
	if !critique.LowCoverage && !critique.LowMutation {
		return model.RouteFinish
	}
	return model.RouteRefine
}
