package approval

import (
	"context"
	"fmt"

	"github.com/vekst/commission-engine/commission"
)

// =============================================================================
// AGENT REFERENCE - Tagged identifier with explicit resolution priority
// =============================================================================

// RefKind tags which identifier an AgentRef carries.
type RefKind string

const (
	RefByID         RefKind = "id"
	RefByName       RefKind = "name"
	RefByExternalID RefKind = "external_id"
)

// AgentRef identifies an agent by exactly one kind of identifier. Callers
// that hold several identifiers build a priority-ordered list with RefsOf
// and let Resolve take the first match.
type AgentRef struct {
	Kind  RefKind
	Value string
}

func ByID(id string) AgentRef          { return AgentRef{Kind: RefByID, Value: id} }
func ByName(name string) AgentRef      { return AgentRef{Kind: RefByName, Value: name} }
func ByExternalID(eid string) AgentRef { return AgentRef{Kind: RefByExternalID, Value: eid} }

func (r AgentRef) String() string { return string(r.Kind) + ":" + r.Value }

// RefsOf builds the canonical resolution order - id, then name, then
// external id - skipping empty identifiers.
func RefsOf(id, name, externalID string) []AgentRef {
	var refs []AgentRef
	if id != "" {
		refs = append(refs, ByID(id))
	}
	if name != "" {
		refs = append(refs, ByName(name))
	}
	if externalID != "" {
		refs = append(refs, ByExternalID(externalID))
	}
	return refs
}

// Resolve tries each reference in order and returns the first employee that
// matches. The order of refs IS the priority contract; Resolve never
// reorders it.
func Resolve(ctx context.Context, dir Directory, refs []AgentRef) (*commission.Employee, error) {
	if len(refs) == 0 {
		return nil, ErrMissingAgentRef
	}

	for _, ref := range refs {
		var (
			emp *commission.Employee
			err error
		)
		switch ref.Kind {
		case RefByID:
			emp, err = dir.EmployeeByID(ctx, ref.Value)
		case RefByName:
			emp, err = dir.EmployeeByName(ctx, ref.Value)
		case RefByExternalID:
			emp, err = dir.EmployeeByExternalID(ctx, ref.Value)
		default:
			return nil, fmt.Errorf("unknown agent ref kind %q", ref.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("agent lookup by %s failed: %w", ref.Kind, err)
		}
		if emp != nil {
			return emp, nil
		}
	}

	return nil, &AgentNotFoundError{Refs: refs}
}
