// Package filters defines the structured filters for every searchable entity,
// their text-filter rule tables, and their compilation into SQL predicate
// fragments and human readable descriptions.
package filters

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ledgerlens/internal/sqlq"
)

// Entity names a filterable record type.
type Entity string

const (
	EntityAccount        Entity = "account"
	EntityBill           Entity = "bill"
	EntityBudget         Entity = "budget"
	EntityCategory       Entity = "category"
	EntityTag            Entity = "tag"
	EntityLabel          Entity = "label"
	EntityFile           Entity = "file"
	EntityNote           Entity = "note"
	EntityAssociatedInfo Entity = "associated_info"
	EntityJournal        Entity = "journal"
	EntityQueryLog       Entity = "query_log"
)

// Target selects the relation a filter compiles against.
type Target int

const (
	// TargetView binds against the plain <entity>_view relation.
	TargetView Target = iota
	// TargetMaterialized binds against <entity>_materialized_view, which adds
	// count, sum, first_date, last_date and link count columns.
	TargetMaterialized
)

var summarised = map[Entity]bool{
	EntityAccount:  true,
	EntityBill:     true,
	EntityBudget:   true,
	EntityCategory: true,
	EntityTag:      true,
	EntityLabel:    true,
}

// Relation returns the relation an entity filter binds against for target.
// Entities without a materialized view always use their plain view.
func Relation(e Entity, target Target) sqlq.Relation {
	if target == TargetMaterialized && summarised[e] {
		return sqlq.Materialized{Table: string(e) + "_materialized_view"}
	}
	link := string(e) + "_id"
	if e == EntityAssociatedInfo {
		link = "id"
	}
	return sqlq.View{Table: string(e) + "_view", LinkColumn: link}
}

// DisplayName renders an entity name for sentences, e.g. "Associated Info".
func DisplayName(e Entity) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(e), "_", " "))
}
