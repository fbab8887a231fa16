package simulator

import "math/rand"

// RandomActivation activates every registered agent once per step, in a
// freshly shuffled order each step.
type RandomActivation struct {
	rng    *rand.Rand
	agents []Agent
	steps  int
}

func NewRandomActivation(rng *rand.Rand) *RandomActivation {
	return &RandomActivation{
		rng:    rng,
		agents: make([]Agent, 0),
	}
}

func (ra *RandomActivation) Add(agent Agent) {
	ra.agents = append(ra.agents, agent)
}

// Agents returns the registered agents in registration order.
func (ra *RandomActivation) Agents() []Agent {
	out := make([]Agent, len(ra.agents))
	copy(out, ra.agents)
	return out
}

func (ra *RandomActivation) Len() int { return len(ra.agents) }

// Steps returns how many times Step has run.
func (ra *RandomActivation) Steps() int { return ra.steps }

// Step activates the agents present at call time in a uniform random permutation.
// Later agents see whatever earlier agents changed during the same step.
func (ra *RandomActivation) Step() {
	ra.steps++
	order := ra.Agents()
	ra.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	for _, agent := range order {
		agent.Activate(ra.steps)
	}
}
