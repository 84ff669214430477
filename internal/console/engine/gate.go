package engine

// TargetAll is the sentinel confirmation target meaning "every record
// currently visible", as opposed to a single record identity.
const TargetAll = "all"

// confirmGate holds the single pending destructive-action confirmation.
// Requesting a new confirmation while one is pending replaces the target:
// last request wins. The zero value is idle.
type confirmGate struct {
	target string
}

func (g *confirmGate) request(target string) {
	g.target = target
}

// take returns the pending target and resets the gate to idle.
func (g *confirmGate) take() (string, bool) {
	target := g.target
	g.target = ""
	return target, target != ""
}

func (g *confirmGate) clear() {
	g.target = ""
}

func (g *confirmGate) pending() (string, bool) {
	return g.target, g.target != ""
}
