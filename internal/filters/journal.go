package filters

import (
	"context"
	"strings"
	"time"

	"ledgerlens/internal/sqlq"
	"ledgerlens/internal/textfilter"
)

// PayeeFilter matches the payee of a journal entry by title.
type PayeeFilter struct {
	TitleArray        []string `json:"titleArray,omitempty"`
	ExcludeTitleArray []string `json:"excludeTitleArray,omitempty"`
}

// JournalFilter selects journal entries. Linked entity constraints are held
// as nested filters whose text is processed when the journal filter compiles.
type JournalFilter struct {
	TextFilter                string   `json:"textFilter,omitempty"`
	IDArray                   []string `json:"idArray,omitempty"`
	ExcludeIDArray            []string `json:"excludeIdArray,omitempty"`
	TransactionIDArray        []string `json:"transactionIdArray,omitempty"`
	ExcludeTransactionIDArray []string `json:"excludeTransactionIdArray,omitempty"`
	DescriptionArray          []string `json:"descriptionArray,omitempty"`
	ExcludeDescriptionArray   []string `json:"excludeDescriptionArray,omitempty"`

	MaxAmount  *float64 `json:"maxAmount,omitempty"`
	MinAmount  *float64 `json:"minAmount,omitempty"`
	DateBefore string   `json:"dateBefore,omitempty"`
	DateAfter  string   `json:"dateAfter,omitempty"`
	DateSpan   DateSpan `json:"dateSpan,omitempty"`

	Reconciled  *bool `json:"reconciled,omitempty"`
	Complete    *bool `json:"complete,omitempty"`
	DataChecked *bool `json:"dataChecked,omitempty"`
	Linked      *bool `json:"linked,omitempty"`
	Transfer    *bool `json:"transfer,omitempty"`

	ImportFilter
	LinkFilter

	Payee    *PayeeFilter    `json:"payee,omitempty"`
	Account  *AccountFilter  `json:"account,omitempty"`
	Tag      *TagFilter      `json:"tag,omitempty"`
	Category *CategoryFilter `json:"category,omitempty"`
	Bill     *BillFilter     `json:"bill,omitempty"`
	Budget   *BudgetFilter   `json:"budget,omitempty"`
	Label    *LabelFilter    `json:"label,omitempty"`
}

func setSpan(f *JournalFilter, v string) {
	for _, s := range DateSpans {
		if strings.EqualFold(string(s), v) {
			f.DateSpan = s
			return
		}
	}
}

func addPayee(f *JournalFilter, v string, exclude bool) {
	if v == "" {
		return
	}
	var p PayeeFilter
	if f.Payee != nil {
		p = *f.Payee
	}
	if exclude {
		textfilter.AddToArray(&p.ExcludeTitleArray, v)
	} else {
		textfilter.AddToArray(&p.TitleArray, v)
	}
	f.Payee = &p
}

func accountText(f *AccountFilter) *string   { return &f.TextFilter }
func tagText(f *TagFilter) *string           { return &f.TextFilter }
func categoryText(f *CategoryFilter) *string { return &f.TextFilter }
func billText(f *BillFilter) *string         { return &f.TextFilter }
func budgetText(f *BudgetFilter) *string     { return &f.TextFilter }
func labelText(f *LabelFilter) *string       { return &f.TextFilter }

// deferTo builds the positive and negative rules for a nested filter key.
// The payload is rewritten as prefix+value in the nested vocabulary.
func deferTo[N any](key, prefix string, field func(*JournalFilter) **N, text func(*N) *string) []textfilter.Rule[JournalFilter] {
	return []textfilter.Rule[JournalFilter]{
		{Keys: []string{key}, Update: func(f *JournalFilter, v string) {
			if v == "" {
				return
			}
			textfilter.Defer(field(f), text, prefix+textfilter.Quote(v))
		}},
		{Keys: []string{"!" + key}, Update: func(f *JournalFilter, v string) {
			if v == "" {
				return
			}
			textfilter.Defer(field(f), text, "!"+prefix+textfilter.Quote(v))
		}},
	}
}

// deferFlag builds rules for a payload-less key passed through to a nested filter.
func deferFlag[N any](key string, field func(*JournalFilter) **N, text func(*N) *string) []textfilter.Rule[JournalFilter] {
	return []textfilter.Rule[JournalFilter]{
		{Keys: []string{key}, Update: func(f *JournalFilter, _ string) { textfilter.Defer(field(f), text, key) }},
		{Keys: []string{"!" + key}, Update: func(f *JournalFilter, _ string) { textfilter.Defer(field(f), text, "!"+key) }},
	}
}

func setJournalBool(field func(*JournalFilter) **bool, keys ...string) []textfilter.Rule[JournalFilter] {
	pos := make([]string, len(keys))
	neg := make([]string, len(keys))
	for i, k := range keys {
		pos[i] = k
		neg[i] = "!" + k
	}
	return []textfilter.Rule[JournalFilter]{
		{Keys: pos, Update: func(f *JournalFilter, _ string) { textfilter.SetBool(field(f), true) }},
		{Keys: neg, Update: func(f *JournalFilter, _ string) { textfilter.SetBool(field(f), false) }},
	}
}

func journalAccount(f *JournalFilter) **AccountFilter   { return &f.Account }
func journalTag(f *JournalFilter) **TagFilter           { return &f.Tag }
func journalCategory(f *JournalFilter) **CategoryFilter { return &f.Category }
func journalBill(f *JournalFilter) **BillFilter         { return &f.Bill }
func journalBudget(f *JournalFilter) **BudgetFilter     { return &f.Budget }
func journalLabel(f *JournalFilter) **LabelFilter       { return &f.Label }

var journalHandler = textfilter.NewHandler(
	func(f *JournalFilter) *string { return &f.TextFilter },
	func(f *JournalFilter, v string) { textfilter.AddToArray(&f.DescriptionArray, v) },
	func(f *JournalFilter, v string) { textfilter.AddToArray(&f.ExcludeDescriptionArray, v) },
	[]textfilter.Rule[JournalFilter]{
		{Keys: []string{"id:"}, Update: func(f *JournalFilter, v string) { textfilter.AddToArray(&f.IDArray, v) }},
		{Keys: []string{"!id:"}, Update: func(f *JournalFilter, v string) { textfilter.AddToArray(&f.ExcludeIDArray, v) }},
		{Keys: []string{"transactionid:"}, Update: func(f *JournalFilter, v string) { textfilter.AddToArray(&f.TransactionIDArray, v) }},
		{Keys: []string{"!transactionid:"}, Update: func(f *JournalFilter, v string) { textfilter.AddToArray(&f.ExcludeTransactionIDArray, v) }},
		{Keys: []string{"description:", "desc:"}, Update: func(f *JournalFilter, v string) { textfilter.AddToArray(&f.DescriptionArray, v) }},
		{Keys: []string{"!description:", "!desc:"}, Update: func(f *JournalFilter, v string) { textfilter.AddToArray(&f.ExcludeDescriptionArray, v) }},
		{Keys: []string{"payee:"}, Update: func(f *JournalFilter, v string) { addPayee(f, v, false) }},
		{Keys: []string{"!payee:"}, Update: func(f *JournalFilter, v string) { addPayee(f, v, true) }},
		{Keys: []string{"min:"}, Update: func(f *JournalFilter, v string) { textfilter.CompareTextNumber(&f.MinAmount, v, textfilter.Min) }},
		{Keys: []string{"max:"}, Update: func(f *JournalFilter, v string) { textfilter.CompareTextNumber(&f.MaxAmount, v, textfilter.Max) }},
		{Keys: []string{"before:"}, Update: func(f *JournalFilter, v string) { textfilter.CompareTextDate(&f.DateBefore, v, textfilter.Min) }},
		{Keys: []string{"after:"}, Update: func(f *JournalFilter, v string) { textfilter.CompareTextDate(&f.DateAfter, v, textfilter.Max) }},
		{Keys: []string{"span:"}, Update: setSpan},
	},
	deferTo("accountgroup:", "group:", journalAccount, accountText),
	deferTo("account:", "", journalAccount, accountText),
	deferTo("type:", "type:", journalAccount, accountText),
	deferFlag("cash:", journalAccount, accountText),
	deferFlag("nw:", journalAccount, accountText),
	deferTo("tag:", "", journalTag, tagText),
	deferTo("category:", "", journalCategory, categoryText),
	deferTo("bill:", "", journalBill, billText),
	deferTo("budget:", "", journalBudget, budgetText),
	deferTo("label:", "", journalLabel, labelText),
	setJournalBool(func(f *JournalFilter) **bool { return &f.Reconciled }, "reconciled:"),
	setJournalBool(func(f *JournalFilter) **bool { return &f.Complete }, "complete:"),
	setJournalBool(func(f *JournalFilter) **bool { return &f.DataChecked }, "datachecked:"),
	setJournalBool(func(f *JournalFilter) **bool { return &f.Linked }, "linked:"),
	setJournalBool(func(f *JournalFilter) **bool { return &f.Transfer }, "transfer:"),
	importRules(func(f *JournalFilter) *ImportFilter { return &f.ImportFilter }),
	linkRules(func(f *JournalFilter) *LinkFilter { return &f.LinkFilter }),
)

// ProcessJournalTextFilter folds the text filter into structured fields.
// Nested filters receive their clauses as text and are processed on use.
func ProcessJournalTextFilter(f JournalFilter) JournalFilter { return journalHandler.Process(f) }

// JournalFilterKeys lists the text filter keys journal entries accept.
func JournalFilterKeys() []string { return journalHandler.Keys() }

// QueryOption configures journal compilation.
type QueryOption func(*queryOptions)

type queryOptions struct {
	now time.Time
}

// WithNow fixes the current time used to resolve date spans.
func WithNow(now time.Time) QueryOption {
	return func(o *queryOptions) { o.now = now }
}

func buildQueryOptions(opts []QueryOption) queryOptions {
	o := queryOptions{now: time.Now()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DateBounds returns the effective inclusive date bounds of a processed
// journal filter after intersecting its span with DateAfter and DateBefore.
// Empty strings mean unbounded.
func (f JournalFilter) DateBounds(now time.Time) (after, before string) {
	after, before = f.DateAfter, f.DateBefore
	start, end, ok := f.DateSpan.Range(now)
	if !ok {
		return after, before
	}
	if s := start.Format(time.DateOnly); after == "" || s > after {
		after = s
	}
	if e := end.Format(time.DateOnly); before == "" || e < before {
		before = e
	}
	return after, before
}

const journalRelation = "journal_view"

func subquery(q *sqlq.Builder, col, table string, frags []sqlq.Fragment) {
	if len(frags) == 0 {
		return
	}
	where, args := sqlq.Where(frags)
	q.Add(sqlq.Raw(col+" IN (SELECT "+table+".id FROM "+table+where+")", args...))
}

// JournalFilterToQuery compiles a journal filter against journal_view.
func JournalFilterToQuery(f JournalFilter, opts ...QueryOption) []sqlq.Fragment {
	o := buildQueryOptions(opts)
	f = ProcessJournalTextFilter(f)
	rel := sqlq.View{Table: journalRelation, LinkColumn: "journal_id"}

	var q sqlq.Builder
	sqlq.In(&q, rel.Col("id"), f.IDArray)
	sqlq.NotIn(&q, rel.Col("id"), f.ExcludeIDArray)
	sqlq.In(&q, rel.Col("transaction_id"), f.TransactionIDArray)
	sqlq.NotIn(&q, rel.Col("transaction_id"), f.ExcludeTransactionIDArray)
	q.LikeAny(rel.Col("description"), f.DescriptionArray)
	q.NotLikeAny(rel.Col("description"), f.ExcludeDescriptionArray)
	q.Cmp(rel.Col("amount"), "<=", f.MaxAmount)
	q.Cmp(rel.Col("amount"), ">=", f.MinAmount)

	after, before := f.DateBounds(o.now)
	q.CmpText(rel.Col("date"), ">=", after)
	q.CmpText(rel.Col("date"), "<=", before)

	q.Bool(rel.Col("reconciled"), f.Reconciled)
	q.Bool(rel.Col("complete"), f.Complete)
	q.Bool(rel.Col("data_checked"), f.DataChecked)
	q.Bool(rel.Col("linked"), f.Linked)
	q.Bool(rel.Col("transfer"), f.Transfer)
	f.ImportFilter.query(&q, rel)
	f.LinkFilter.query(&q, rel)

	if f.Payee != nil {
		q.LikeAny(rel.Col("payee_title"), f.Payee.TitleArray)
		q.NotLikeAny(rel.Col("payee_title"), f.Payee.ExcludeTitleArray)
	}
	if f.Account != nil {
		subquery(&q, rel.Col("account_id"), "account_view", AccountFilterToQuery(*f.Account, TargetView))
	}
	if f.Tag != nil {
		subquery(&q, rel.Col("tag_id"), "tag_view", TagFilterToQuery(*f.Tag, TargetView))
	}
	if f.Category != nil {
		subquery(&q, rel.Col("category_id"), "category_view", CategoryFilterToQuery(*f.Category, TargetView))
	}
	if f.Bill != nil {
		subquery(&q, rel.Col("bill_id"), "bill_view", BillFilterToQuery(*f.Bill, TargetView))
	}
	if f.Budget != nil {
		subquery(&q, rel.Col("budget_id"), "budget_view", BudgetFilterToQuery(*f.Budget, TargetView))
	}
	if f.Label != nil {
		if frags := LabelFilterToQuery(*f.Label, TargetView); len(frags) > 0 {
			where, args := sqlq.Where(frags)
			q.Add(sqlq.Raw(rel.Col("id")+" IN (SELECT journal_label.journal_id FROM journal_label"+
				" JOIN label_view ON label_view.id = journal_label.label_id"+where+")", args...))
		}
	}
	return q.Fragments()
}

// JournalFilterToText describes a journal filter, including its nested filters.
func JournalFilterToText(ctx context.Context, lookup TitleLookup, f JournalFilter, opts ...TextOption) ([]string, error) {
	return describe(ctx, lookup, opts, func(d *describer) {
		f = ProcessJournalTextFilter(f)
		d.ids("", EntityJournal, f.IDArray, false)
		d.ids("", EntityJournal, f.ExcludeIDArray, true)
		values(d, "Transaction", f.TransactionIDArray, false)
		values(d, "Transaction", f.ExcludeTransactionIDArray, true)
		values(d, "Description", f.DescriptionArray, false)
		values(d, "Description", f.ExcludeDescriptionArray, true)
		d.number("Amount", "at most", f.MaxAmount)
		d.number("Amount", "at least", f.MinAmount)
		d.date("Date", "on or before", f.DateBefore)
		d.date("Date", "on or after", f.DateAfter)
		if f.DateSpan != "" {
			d.add("Date is within " + f.DateSpan.Label())
		}
		d.flag(f.Reconciled, "Is Reconciled", "Is Not Reconciled")
		d.flag(f.Complete, "Is Complete", "Is Not Complete")
		d.flag(f.DataChecked, "Is Data Checked", "Is Not Data Checked")
		d.flag(f.Linked, "Is Linked", "Is Not Linked")
		d.flag(f.Transfer, "Is Transfer", "Is Not Transfer")
		f.ImportFilter.text(d)
		f.LinkFilter.text(d)

		if f.Payee != nil {
			values(d, "Payee", f.Payee.TitleArray, false)
			values(d, "Payee", f.Payee.ExcludeTitleArray, true)
		}
		if f.Account != nil {
			d.nested(DisplayName(EntityAccount), func(sd *describer) { describeAccount(sd, *f.Account) })
		}
		if f.Tag != nil {
			d.nested(DisplayName(EntityTag), func(sd *describer) { describeTag(sd, *f.Tag) })
		}
		if f.Category != nil {
			d.nested(DisplayName(EntityCategory), func(sd *describer) { describeCategory(sd, *f.Category) })
		}
		if f.Bill != nil {
			d.nested(DisplayName(EntityBill), func(sd *describer) { describeBill(sd, *f.Bill) })
		}
		if f.Budget != nil {
			d.nested(DisplayName(EntityBudget), func(sd *describer) { describeBudget(sd, *f.Budget) })
		}
		if f.Label != nil {
			d.nested(DisplayName(EntityLabel), func(sd *describer) { describeLabel(sd, *f.Label) })
		}
	})
}
