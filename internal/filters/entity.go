package filters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledgerlens/internal/sqlq"
)

// ErrUnknownEntity is returned for an entity name outside Entities.
var ErrUnknownEntity = errors.New("unknown entity")

// Entities lists every filterable entity.
var Entities = []Entity{
	EntityAccount, EntityBill, EntityBudget, EntityCategory, EntityTag, EntityLabel,
	EntityFile, EntityNote, EntityAssociatedInfo, EntityJournal, EntityQueryLog,
}

// ParseEntity returns the entity named s. Matching ignores case and accepts
// hyphens for underscores.
func ParseEntity(s string) (Entity, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, e := range Entities {
		if string(e) == name {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownEntity, s)
}

// Compile compiles a raw text filter for entity e. Journal filters always
// bind against journal_view and ignore target.
func Compile(e Entity, text string, target Target, opts ...QueryOption) ([]sqlq.Fragment, error) {
	switch e {
	case EntityAccount:
		return AccountFilterToQuery(AccountFilter{BasicFilter: BasicFilter{TextFilter: text}}, target), nil
	case EntityBill:
		return BillFilterToQuery(BillFilter{BasicFilter: BasicFilter{TextFilter: text}}, target), nil
	case EntityBudget:
		return BudgetFilterToQuery(BudgetFilter{BasicFilter: BasicFilter{TextFilter: text}}, target), nil
	case EntityCategory:
		return CategoryFilterToQuery(CategoryFilter{BasicFilter: BasicFilter{TextFilter: text}}, target), nil
	case EntityTag:
		return TagFilterToQuery(TagFilter{BasicFilter: BasicFilter{TextFilter: text}}, target), nil
	case EntityLabel:
		return LabelFilterToQuery(LabelFilter{BasicFilter: BasicFilter{TextFilter: text}}, target), nil
	case EntityFile:
		return FileFilterToQuery(FileFilter{TextFilter: text}, target), nil
	case EntityNote:
		return NoteFilterToQuery(NoteFilter{TextFilter: text}, target), nil
	case EntityAssociatedInfo:
		return AssociatedInfoFilterToQuery(AssociatedInfoFilter{TextFilter: text}, target), nil
	case EntityJournal:
		return JournalFilterToQuery(JournalFilter{TextFilter: text}, opts...), nil
	case EntityQueryLog:
		return QueryLogFilterToQuery(QueryLogFilter{TextFilter: text}, target), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownEntity, e)
}

// Describe renders a raw text filter for entity e as sentences.
func Describe(ctx context.Context, lookup TitleLookup, e Entity, text string, opts ...TextOption) ([]string, error) {
	switch e {
	case EntityAccount:
		return AccountFilterToText(ctx, lookup, AccountFilter{BasicFilter: BasicFilter{TextFilter: text}}, opts...)
	case EntityBill:
		return BillFilterToText(ctx, lookup, BillFilter{BasicFilter: BasicFilter{TextFilter: text}}, opts...)
	case EntityBudget:
		return BudgetFilterToText(ctx, lookup, BudgetFilter{BasicFilter: BasicFilter{TextFilter: text}}, opts...)
	case EntityCategory:
		return CategoryFilterToText(ctx, lookup, CategoryFilter{BasicFilter: BasicFilter{TextFilter: text}}, opts...)
	case EntityTag:
		return TagFilterToText(ctx, lookup, TagFilter{BasicFilter: BasicFilter{TextFilter: text}}, opts...)
	case EntityLabel:
		return LabelFilterToText(ctx, lookup, LabelFilter{BasicFilter: BasicFilter{TextFilter: text}}, opts...)
	case EntityFile:
		return FileFilterToText(ctx, lookup, FileFilter{TextFilter: text}, opts...)
	case EntityNote:
		return NoteFilterToText(ctx, lookup, NoteFilter{TextFilter: text}, opts...)
	case EntityAssociatedInfo:
		return AssociatedInfoFilterToText(ctx, lookup, AssociatedInfoFilter{TextFilter: text}, opts...)
	case EntityJournal:
		return JournalFilterToText(ctx, lookup, JournalFilter{TextFilter: text}, opts...)
	case EntityQueryLog:
		return QueryLogFilterToText(ctx, lookup, QueryLogFilter{TextFilter: text}, opts...)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownEntity, e)
}
