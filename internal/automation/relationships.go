package automation

import (
	"fmt"
	"sort"
)

// Relationship names the link field on a Source record that holds the
// identifiers of related Target records.
type Relationship struct {
	Source    Table
	Target    Table
	LinkField string
}

type relationshipKey struct {
	source Table
	target Table
}

// RelationshipTable maps (source, target) table pairs to link fields. It
// is immutable once built and safe for concurrent use.
type RelationshipTable struct {
	links map[relationshipKey]string
}

// DefaultRelationships are the links used by the CRM base.
func DefaultRelationships() []Relationship {
	return []Relationship{
		{Source: TableActivity, Target: TableLead, LinkField: "ID Lead"},
		{Source: TableOrder, Target: TableLead, LinkField: "ID_Lead"},
		{Source: TableActivity, Target: TableUser, LinkField: "Assegnatario"},
		{Source: TableOrder, Target: TableUser, LinkField: "ID_Venditore"},
		{Source: TableLead, Target: TableUser, LinkField: "Assegnatario"},
	}
}

// NewRelationshipTable builds a table from rels. Later entries for the same
// pair replace earlier ones, so configuration can override the defaults.
func NewRelationshipTable(rels ...Relationship) *RelationshipTable {
	t := &RelationshipTable{links: make(map[relationshipKey]string, len(rels))}
	for _, r := range rels {
		t.links[relationshipKey{source: r.Source, target: r.Target}] = r.LinkField
	}
	return t
}

func (t *RelationshipTable) LinkField(source, target Table) (string, bool) {
	if t == nil {
		return "", false
	}
	field, ok := t.links[relationshipKey{source: source, target: target}]
	return field, ok && field != ""
}

// Relationships returns the registered links sorted by source then target.
func (t *RelationshipTable) Relationships() []Relationship {
	rels := make([]Relationship, 0, len(t.links))
	for k, field := range t.links {
		rels = append(rels, Relationship{Source: k.source, Target: k.target, LinkField: field})
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Source != rels[j].Source {
			return rels[i].Source < rels[j].Source
		}
		return rels[i].Target < rels[j].Target
	})
	return rels
}

// Validate checks every registered link against schemas: both tables must
// be known and the link field must be a link field of the source table.
func (t *RelationshipTable) Validate(schemas Schemas) error {
	for _, r := range t.Relationships() {
		if !r.Source.Valid() || !r.Target.Valid() {
			return fmt.Errorf("relationship %s -> %s: unknown table", r.Source, r.Target)
		}
		if r.Source == r.Target {
			return fmt.Errorf("relationship %s -> %s: source and target must differ", r.Source, r.Target)
		}
		schema, ok := schemas[r.Source]
		if !ok {
			continue
		}
		kind, ok := schema.Kind(r.LinkField)
		if !ok {
			return fmt.Errorf("relationship %s -> %s: field %q does not exist on %s", r.Source, r.Target, r.LinkField, r.Source)
		}
		if kind != KindLink {
			return fmt.Errorf("relationship %s -> %s: field %q is %s, not a link", r.Source, r.Target, r.LinkField, kind)
		}
		if linked, ok := schema.LinkTargets[r.LinkField]; ok && linked != r.Target {
			return fmt.Errorf("relationship %s -> %s: field %q links to %s", r.Source, r.Target, r.LinkField, linked)
		}
	}
	return nil
}
