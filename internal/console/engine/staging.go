package engine

// Stage records an uncommitted verification-code value for a record. An
// entry exists only while the staged value differs from the committed one;
// typing the committed value back removes the entry. Staged values shadow
// the committed value in the derived view and survive snapshot refreshes
// until committed or cleared.
func (e *Engine) Stage(id, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	committed, known := "", false
	for _, r := range e.snapshot {
		if r.ID == id {
			committed, known = r.Code, true
			break
		}
	}
	if known && committed == value {
		delete(e.staged, id)
	} else {
		e.staged[id] = value
	}
	e.metrics.SetStagedEdits(len(e.staged))
}

// EffectiveCode returns the displayed verification code for a record: the
// staged value if one exists, else the committed snapshot value. Unknown
// identities yield an empty string; referencing a record that has left the
// snapshot is a permissible transient state, not an error.
func (e *Engine) EffectiveCode(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if v, ok := e.staged[id]; ok {
		return v
	}
	for _, r := range e.snapshot {
		if r.ID == id {
			return r.Code
		}
	}
	return ""
}

// clearStagedLocked removes the staging entry for id. Callers must hold e.mu.
func (e *Engine) clearStagedLocked(id string) {
	delete(e.staged, id)
	e.metrics.SetStagedEdits(len(e.staged))
}
