package filters

import (
	"context"

	"ledgerlens/internal/sqlq"
	"ledgerlens/internal/textfilter"
)

// AccountType classifies an account.
type AccountType string

const (
	AccountAsset     AccountType = "asset"
	AccountLiability AccountType = "liability"
	AccountIncome    AccountType = "income"
	AccountExpense   AccountType = "expense"
)

// AccountTypes lists every valid account type.
var AccountTypes = []AccountType{AccountAsset, AccountLiability, AccountIncome, AccountExpense}

// AccountFilter selects accounts.
type AccountFilter struct {
	BasicFilter
	Type                     []AccountType `json:"type,omitempty"`
	ExcludeType              []AccountType `json:"excludeType,omitempty"`
	IsCash                   *bool         `json:"isCash,omitempty"`
	IsNetWorth               *bool         `json:"isNetWorth,omitempty"`
	AccountGroupArray        []string      `json:"accountGroupArray,omitempty"`
	ExcludeAccountGroupArray []string      `json:"excludeAccountGroupArray,omitempty"`
	StartDateAfter           string        `json:"startDateAfter,omitempty"`
	StartDateBefore          string        `json:"startDateBefore,omitempty"`
	EndDateAfter             string        `json:"endDateAfter,omitempty"`
	EndDateBefore            string        `json:"endDateBefore,omitempty"`
}

func addAccountTypes(dst *[]AccountType, v string) {
	for _, part := range textfilter.SplitComposite(v) {
		textfilter.AddEnumToArray(dst, part, AccountTypes)
	}
}

var accountHandler = basicHandler(
	func(f *AccountFilter) *BasicFilter { return &f.BasicFilter },
	[]textfilter.Rule[AccountFilter]{
		{Keys: []string{"type:"}, Update: func(f *AccountFilter, v string) { addAccountTypes(&f.Type, v) }},
		{Keys: []string{"!type:"}, Update: func(f *AccountFilter, v string) { addAccountTypes(&f.ExcludeType, v) }},
		{Keys: []string{"cash:"}, Update: func(f *AccountFilter, _ string) { textfilter.SetBool(&f.IsCash, true) }},
		{Keys: []string{"!cash:"}, Update: func(f *AccountFilter, _ string) { textfilter.SetBool(&f.IsCash, false) }},
		{Keys: []string{"nw:", "networth:"}, Update: func(f *AccountFilter, _ string) { textfilter.SetBool(&f.IsNetWorth, true) }},
		{Keys: []string{"!nw:", "!networth:"}, Update: func(f *AccountFilter, _ string) { textfilter.SetBool(&f.IsNetWorth, false) }},
		{Keys: []string{"group:"}, Update: func(f *AccountFilter, v string) { textfilter.AddToArray(&f.AccountGroupArray, v) }},
		{Keys: []string{"!group:"}, Update: func(f *AccountFilter, v string) { textfilter.AddToArray(&f.ExcludeAccountGroupArray, v) }},
		{Keys: []string{"startafter:"}, Update: func(f *AccountFilter, v string) { textfilter.CompareTextDate(&f.StartDateAfter, v, textfilter.Max) }},
		{Keys: []string{"startbefore:"}, Update: func(f *AccountFilter, v string) { textfilter.CompareTextDate(&f.StartDateBefore, v, textfilter.Min) }},
		{Keys: []string{"endafter:"}, Update: func(f *AccountFilter, v string) { textfilter.CompareTextDate(&f.EndDateAfter, v, textfilter.Max) }},
		{Keys: []string{"endbefore:"}, Update: func(f *AccountFilter, v string) { textfilter.CompareTextDate(&f.EndDateBefore, v, textfilter.Min) }},
	},
)

// ProcessAccountTextFilter folds the text filter into structured fields.
func ProcessAccountTextFilter(f AccountFilter) AccountFilter {
	return accountHandler.Process(f)
}

// AccountFilterKeys lists the text filter keys accounts accept.
func AccountFilterKeys() []string {
	return accountHandler.Keys()
}

// AccountFilterToQuery compiles an account filter into predicate fragments.
func AccountFilterToQuery(f AccountFilter, target Target) []sqlq.Fragment {
	f = ProcessAccountTextFilter(f)
	rel := Relation(EntityAccount, target)

	var q sqlq.Builder
	f.BasicFilter.query(&q, rel)
	sqlq.In(&q, rel.Col("type"), f.Type)
	sqlq.NotIn(&q, rel.Col("type"), f.ExcludeType)
	q.Bool(rel.Col("is_cash"), f.IsCash)
	q.Bool(rel.Col("is_net_worth"), f.IsNetWorth)
	q.LikeAny(rel.Col("account_group"), f.AccountGroupArray)
	q.NotLikeAny(rel.Col("account_group"), f.ExcludeAccountGroupArray)
	q.CmpText(rel.Col("start_date"), ">=", f.StartDateAfter)
	q.CmpText(rel.Col("start_date"), "<=", f.StartDateBefore)
	q.CmpText(rel.Col("end_date"), ">=", f.EndDateAfter)
	q.CmpText(rel.Col("end_date"), "<=", f.EndDateBefore)
	return q.Fragments()
}

// AccountFilterToText describes an account filter.
func AccountFilterToText(ctx context.Context, lookup TitleLookup, f AccountFilter, opts ...TextOption) ([]string, error) {
	return describe(ctx, lookup, opts, func(d *describer) { describeAccount(d, f) })
}

func describeAccount(d *describer, f AccountFilter) {
	f = ProcessAccountTextFilter(f)
	f.BasicFilter.text(d, EntityAccount)
	values(d, "Type", f.Type, false)
	values(d, "Type", f.ExcludeType, true)
	d.flag(f.IsCash, "Is Cash", "Is Not Cash")
	d.flag(f.IsNetWorth, "Is Net Worth", "Is Not Net Worth")
	values(d, "Group", f.AccountGroupArray, false)
	values(d, "Group", f.ExcludeAccountGroupArray, true)
	d.date("Start Date", "on or after", f.StartDateAfter)
	d.date("Start Date", "on or before", f.StartDateBefore)
	d.date("End Date", "on or after", f.EndDateAfter)
	d.date("End Date", "on or before", f.EndDateBefore)
}
