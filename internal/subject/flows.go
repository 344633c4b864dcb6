package subject

import "sync"

// FlowRegistry hands out one Flow per actor so a client's stepwise
// interaction survives across requests. Flows are discarded when they
// return to idle.
type FlowRegistry struct {
	orchestrator *Orchestrator

	mu    sync.Mutex
	flows map[string]*Flow
}

func NewFlowRegistry(orchestrator *Orchestrator) *FlowRegistry {
	return &FlowRegistry{
		orchestrator: orchestrator,
		flows:        make(map[string]*Flow),
	}
}

// For returns the actor's flow, creating one if needed.
func (fr *FlowRegistry) For(actorID string) *Flow {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if f, ok := fr.flows[actorID]; ok {
		return f
	}
	f := NewFlow(fr.orchestrator)
	fr.flows[actorID] = f
	return f
}

// Release drops the actor's flow once it is back at idle.
func (fr *FlowRegistry) Release(actorID string) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	if f, ok := fr.flows[actorID]; ok && f.Phase() == PhaseIdle {
		delete(fr.flows, actorID)
	}
}
