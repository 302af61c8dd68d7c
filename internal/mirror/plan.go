package mirror

import (
	"errors"
	"fmt"
)

// ErrMissingParent means a node reached the mirror before its parent was
// mapped to a destination folder. The walk order makes this impossible, so
// seeing it is a defect and aborts the run.
var ErrMissingParent = errors.New("mirror: parent not mapped to a destination folder")

// Plan maps source node ids to the ids created for them at the destination.
// It lives for one run and is never persisted.
type Plan struct {
	dest    map[string]string
	created map[string]bool
}

// NewPlan returns an empty Plan.
func NewPlan() *Plan {
	return &Plan{dest: make(map[string]string), created: make(map[string]bool)}
}

// Set records that srcID was recreated as destID.
func (p *Plan) Set(srcID, destID string) {
	p.dest[srcID] = destID
	p.created[destID] = true
}

// IsDestination reports whether id is one of the plan's destination ids.
func (p *Plan) IsDestination(id string) bool {
	return p.created[id]
}

// Lookup returns the destination id for srcID.
func (p *Plan) Lookup(srcID string) (string, error) {
	id, ok := p.dest[srcID]
	if !ok {
		return "", fmt.Errorf("%w: source %s", ErrMissingParent, srcID)
	}

	return id, nil
}

// Len returns the number of mapped nodes, including the run's root.
func (p *Plan) Len() int {
	return len(p.dest)
}
