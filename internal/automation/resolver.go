package automation

import (
	"fmt"

	pkgerrors "leadflow/pkg/errors"
)

type ResolutionReason string

const (
	// ReasonUnsupportedRelationship means no link is registered for the
	// (trigger table, target table) pair.
	ReasonUnsupportedRelationship ResolutionReason = "unsupported_relationship"
	// ReasonMissingLink means the link field is absent or holds no ids.
	ReasonMissingLink ResolutionReason = "missing_link"
)

// ResolutionFailure explains why no target record could be determined.
type ResolutionFailure struct {
	Reason    ResolutionReason
	Source    Table
	Target    Table
	LinkField string
}

func (f *ResolutionFailure) Error() string {
	switch f.Reason {
	case ReasonUnsupportedRelationship:
		return fmt.Sprintf("no relationship registered from %s to %s", f.Source, f.Target)
	default:
		return fmt.Sprintf("link field %q on %s holds no %s id", f.LinkField, f.Source, f.Target)
	}
}

// Unwrap exposes the matching taxonomy error so callers can use errors.Is.
func (f *ResolutionFailure) Unwrap() error {
	if f.Reason == ReasonUnsupportedRelationship {
		return pkgerrors.ErrUnsupportedRelationship
	}
	return pkgerrors.ErrResolutionFailure
}

// Resolution is the resolved target of an action.
type Resolution struct {
	Table     Table
	ID        string
	LinkField string
	// Candidates holds every id of a multi-valued link; only the first is
	// used as the target.
	Candidates []string
}

type TargetResolver struct {
	relationships *RelationshipTable
}

func NewTargetResolver(relationships *RelationshipTable) *TargetResolver {
	return &TargetResolver{relationships: relationships}
}

// Resolve finds the record the rule's action must mutate. Failure is
// reported as a value, never as a panic.
func (r *TargetResolver) Resolve(rule Rule, dc DispatchContext) (Resolution, *ResolutionFailure) {
	if rule.ActionTargetTable == dc.Table {
		return Resolution{Table: dc.Table, ID: dc.Record.ID}, nil
	}

	field, ok := r.relationships.LinkField(dc.Table, rule.ActionTargetTable)
	if !ok {
		return Resolution{}, &ResolutionFailure{
			Reason: ReasonUnsupportedRelationship,
			Source: dc.Table,
			Target: rule.ActionTargetTable,
		}
	}

	ids, _ := dc.Record.Links(field)
	if len(ids) == 0 || ids[0] == "" {
		return Resolution{}, &ResolutionFailure{
			Reason:    ReasonMissingLink,
			Source:    dc.Table,
			Target:    rule.ActionTargetTable,
			LinkField: field,
		}
	}

	return Resolution{
		Table:      rule.ActionTargetTable,
		ID:         ids[0],
		LinkField:  field,
		Candidates: ids,
	}, nil
}
