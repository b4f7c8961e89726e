package filters

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"ledgerlens/internal/sqlq"
)

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func accountWith(text string) AccountFilter {
	return AccountFilter{BasicFilter: BasicFilter{TextFilter: text}}
}

func TestProcessAccountTextFilter(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  AccountFilter
	}{
		{
			name:  "status and account flags",
			input: "disabled: allowUpdate: active: nw: cash:",
			want: AccountFilter{
				BasicFilter: BasicFilter{StatusFilter: StatusFilter{
					Disabled:    boolPtr(true),
					AllowUpdate: boolPtr(true),
					Active:      boolPtr(true),
				}},
				IsNetWorth: boolPtr(true),
				IsCash:     boolPtr(true),
			},
		},
		{
			name:  "composite type",
			input: `type:asset type:liability !type:"income|expense"`,
			want: AccountFilter{
				Type:        []AccountType{AccountAsset, AccountLiability},
				ExcludeType: []AccountType{AccountIncome, AccountExpense},
			},
		},
		{
			name:  "invalid composite parts dropped",
			input: "type:Asset,bogus",
			want:  AccountFilter{Type: []AccountType{AccountAsset}},
		},
		{
			name:  "negated flags",
			input: "!disabled: !cash: !nw:",
			want: AccountFilter{
				BasicFilter: BasicFilter{StatusFilter: StatusFilter{Disabled: boolPtr(false)}},
				IsCash:      boolPtr(false),
				IsNetWorth:  boolPtr(false),
			},
		},
		{
			name:  "quoted title and default routing",
			input: `title:"fast food" foo !bar`,
			want: AccountFilter{BasicFilter: BasicFilter{IDTitleFilter: IDTitleFilter{
				TitleArray:        []string{"fast food", "foo"},
				ExcludeTitleArray: []string{"bar"},
			}}},
		},
		{
			name:  "import detail before import",
			input: "importdetailid:d1 importid:i1 !importid:i2",
			want: AccountFilter{BasicFilter: BasicFilter{ImportFilter: ImportFilter{
				ImportDetailIDArray:  []string{"d1"},
				ImportIDArray:        []string{"i1"},
				ExcludeImportIDArray: []string{"i2"},
			}}},
		},
		{
			name:  "status enum",
			input: "status:active status:bogus !status:disabled",
			want: AccountFilter{BasicFilter: BasicFilter{StatusFilter: StatusFilter{
				StatusArray:        []StatusValue{StatusActive},
				ExcludeStatusArray: []StatusValue{StatusDisabled},
			}}},
		},
		{
			name:  "summary bounds",
			input: "countmin:3 countmin:1 max:50 max:abc firstdatemin:2024-01-05 firstdatemin:2024-02-30",
			want: AccountFilter{BasicFilter: BasicFilter{SummaryFilter: SummaryFilter{
				CountMin:     floatPtr(1),
				TotalMax:     floatPtr(50),
				FirstDateMin: "2024-01-05",
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProcessAccountTextFilter(accountWith(tt.input))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %+v\nwant %+v", got, tt.want)
			}
		})
	}
}

func TestProcessIsIdentityWithoutText(t *testing.T) {
	in := AccountFilter{
		BasicFilter: BasicFilter{IDTitleFilter: IDTitleFilter{TitleArray: []string{"a"}}},
		IsCash:      boolPtr(true),
	}
	if got := ProcessAccountTextFilter(in); !reflect.DeepEqual(got, in) {
		t.Errorf("got %+v, want %+v", got, in)
	}
	j := JournalFilter{MaxAmount: floatPtr(3)}
	if got := ProcessJournalTextFilter(j); !reflect.DeepEqual(got, j) {
		t.Errorf("got %+v, want %+v", got, j)
	}
}

func TestProcessJournalTextFilter(t *testing.T) {
	t.Run("amount bounds keep extremes", func(t *testing.T) {
		got := ProcessJournalTextFilter(JournalFilter{TextFilter: "max:100", MaxAmount: floatPtr(90)})
		if *got.MaxAmount != 100 {
			t.Errorf("MaxAmount = %v, want 100", *got.MaxAmount)
		}
		got = ProcessJournalTextFilter(JournalFilter{TextFilter: "max:90", MaxAmount: floatPtr(100)})
		if *got.MaxAmount != 100 {
			t.Errorf("MaxAmount = %v, want 100", *got.MaxAmount)
		}
		got = ProcessJournalTextFilter(JournalFilter{TextFilter: "min:5 min:-2 min:7"})
		if *got.MinAmount != -2 {
			t.Errorf("MinAmount = %v, want -2", *got.MinAmount)
		}
	})

	t.Run("invalid dates leave field untouched", func(t *testing.T) {
		got := ProcessJournalTextFilter(JournalFilter{TextFilter: "before:2020-02-30 before:tuesday after:2020-13-01"})
		if got.DateBefore != "" || got.DateAfter != "" {
			t.Errorf("dates = %q / %q", got.DateAfter, got.DateBefore)
		}
	})

	t.Run("description default and aliases", func(t *testing.T) {
		got := ProcessJournalTextFilter(JournalFilter{TextFilter: `coffee desc:tea !description:"green tea" !milk`})
		if !reflect.DeepEqual(got.DescriptionArray, []string{"coffee", "tea"}) {
			t.Errorf("DescriptionArray = %v", got.DescriptionArray)
		}
		if !reflect.DeepEqual(got.ExcludeDescriptionArray, []string{"green tea", "milk"}) {
			t.Errorf("ExcludeDescriptionArray = %v", got.ExcludeDescriptionArray)
		}
	})

	t.Run("payee resolves eagerly", func(t *testing.T) {
		got := ProcessJournalTextFilter(JournalFilter{TextFilter: `payee:shop !payee:"big box"`})
		want := &PayeeFilter{TitleArray: []string{"shop"}, ExcludeTitleArray: []string{"big box"}}
		if !reflect.DeepEqual(got.Payee, want) {
			t.Errorf("Payee = %+v", got.Payee)
		}
	})

	t.Run("account clauses defer into sub filter", func(t *testing.T) {
		got := ProcessJournalTextFilter(JournalFilter{
			TextFilter: `account:foo !account:"bar baz" accountgroup:x type:asset cash: !nw:`,
		})
		if got.Account == nil {
			t.Fatal("expected account sub filter")
		}
		wantText := `foo !"bar baz" group:x type:asset cash: !nw:`
		if got.Account.TextFilter != wantText {
			t.Fatalf("Account.TextFilter = %q, want %q", got.Account.TextFilter, wantText)
		}

		acc := ProcessAccountTextFilter(*got.Account)
		if !reflect.DeepEqual(acc.TitleArray, []string{"foo"}) ||
			!reflect.DeepEqual(acc.ExcludeTitleArray, []string{"bar baz"}) ||
			!reflect.DeepEqual(acc.AccountGroupArray, []string{"x"}) ||
			!reflect.DeepEqual(acc.Type, []AccountType{AccountAsset}) ||
			acc.IsCash == nil || !*acc.IsCash ||
			acc.IsNetWorth == nil || *acc.IsNetWorth {
			t.Errorf("processed account = %+v", acc)
		}
	})

	t.Run("other sub filters", func(t *testing.T) {
		got := ProcessJournalTextFilter(JournalFilter{TextFilter: "tag:a tag:b !category:c bill:d budget:e label:f"})
		if got.Tag == nil || got.Tag.TextFilter != "a b" {
			t.Errorf("Tag = %+v", got.Tag)
		}
		if got.Category == nil || got.Category.TextFilter != "!c" {
			t.Errorf("Category = %+v", got.Category)
		}
		if got.Bill == nil || got.Budget == nil || got.Label == nil {
			t.Error("expected bill, budget and label sub filters")
		}
	})

	t.Run("bools and span", func(t *testing.T) {
		got := ProcessJournalTextFilter(JournalFilter{TextFilter: "reconciled: !complete: span:thismonth transfer: !transfer:"})
		if got.Reconciled == nil || !*got.Reconciled {
			t.Error("expected reconciled")
		}
		if got.Complete == nil || *got.Complete {
			t.Error("expected not complete")
		}
		if got.Transfer == nil || *got.Transfer {
			t.Error("last transfer token should win")
		}
		if got.DateSpan != SpanThisMonth {
			t.Errorf("DateSpan = %q", got.DateSpan)
		}
	})
}

func TestEntityFilterToQuery(t *testing.T) {
	t.Run("empty id array is no constraint", func(t *testing.T) {
		f := AccountFilter{BasicFilter: BasicFilter{IDTitleFilter: IDTitleFilter{IDArray: []string{}}}}
		if frags := AccountFilterToQuery(f, TargetView); len(frags) != 0 {
			t.Errorf("expected no fragments, got %v", frags)
		}
		if frags := BillFilterToQuery(BillFilter{}, TargetMaterialized); len(frags) != 0 {
			t.Errorf("expected no fragments, got %v", frags)
		}
	})

	t.Run("text is processed before compiling", func(t *testing.T) {
		frags := AccountFilterToQuery(accountWith("id:a1 cash:"), TargetView)
		want := []sqlq.Fragment{
			{SQL: "account_view.id IN (?)", Args: []any{"a1"}},
			{SQL: "account_view.is_cash = 1"},
		}
		if !reflect.DeepEqual(frags, want) {
			t.Errorf("got %#v", frags)
		}
	})

	t.Run("summary only against materialized view", func(t *testing.T) {
		f := TagFilter{BasicFilter: BasicFilter{TextFilter: "countmin:2"}}
		if frags := TagFilterToQuery(f, TargetView); len(frags) != 0 {
			t.Errorf("plain view got %v", frags)
		}
		frags := TagFilterToQuery(f, TargetMaterialized)
		if len(frags) != 1 || frags[0].SQL != "tag_materialized_view.count >= ?" {
			t.Errorf("materialized got %v", frags)
		}
	})

	t.Run("linked counts", func(t *testing.T) {
		frags := BudgetFilterToQuery(BudgetFilter{BasicFilter: BasicFilter{TextFilter: "hasfile: !hasnote:"}}, TargetMaterialized)
		want := []string{"budget_materialized_view.file_count > 0", "budget_materialized_view.note_count IS NULL"}
		if len(frags) != 2 || frags[0].SQL != want[0] || frags[1].SQL != want[1] {
			t.Errorf("got %v", frags)
		}
	})

	t.Run("category group columns", func(t *testing.T) {
		frags := CategoryFilterToQuery(CategoryFilter{BasicFilter: BasicFilter{TextFilter: "group:food"}}, TargetView)
		if len(frags) != 1 || !strings.Contains(frags[0].SQL, "category_view.group_name") {
			t.Errorf("got %v", frags)
		}
	})

	t.Run("file and note", func(t *testing.T) {
		frags := FileFilterToQuery(FileFilter{TextFilter: "type:pdf type:docx linked:"}, TargetView)
		if len(frags) != 2 || frags[1].SQL != "file_view.associated_info_id IS NOT NULL" {
			t.Errorf("file got %v", frags)
		}
		frags = NoteFilterToQuery(NoteFilter{TextFilter: "milk !complete:"}, TargetView)
		if len(frags) != 2 || !strings.Contains(frags[0].SQL, "note_view.note") {
			t.Errorf("note got %v", frags)
		}
	})

	t.Run("associated info ids", func(t *testing.T) {
		frags := AssociatedInfoFilterToQuery(AssociatedInfoFilter{TextFilter: "accountid:a1 tag:t1"}, TargetView)
		want := []string{"associated_info_view.account_id IN (?)", "associated_info_view.tag_id IN (?)"}
		if len(frags) != 2 || frags[0].SQL != want[0] || frags[1].SQL != want[1] {
			t.Errorf("got %v", frags)
		}
	})

	t.Run("query log", func(t *testing.T) {
		frags := QueryLogFilterToQuery(QueryLogFilter{TextFilter: "after:2024-01-01 durationmin:10"}, TargetView)
		if len(frags) != 2 || frags[0].SQL != "date(query_log_view.time) >= ?" {
			t.Errorf("got %v", frags)
		}
	})
}

func TestAssociatedInfoNegation(t *testing.T) {
	tests := []struct {
		text        string
		wantInclude []string
		wantExclude []string
	}{
		{"account:a1", []string{"a1"}, nil},
		{"!account:a1", nil, []string{"a1"}},
		{"!accountid:a2", nil, []string{"a2"}},
		{"accountid:a1 !account:a2", []string{"a1"}, []string{"a2"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := ProcessAssociatedInfoTextFilter(AssociatedInfoFilter{TextFilter: tt.text})
			if !reflect.DeepEqual(got.AccountIDArray, tt.wantInclude) {
				t.Errorf("AccountIDArray = %v, want %v", got.AccountIDArray, tt.wantInclude)
			}
			if !reflect.DeepEqual(got.ExcludeAccountIDArray, tt.wantExclude) {
				t.Errorf("ExcludeAccountIDArray = %v, want %v", got.ExcludeAccountIDArray, tt.wantExclude)
			}
		})
	}

	frags := AssociatedInfoFilterToQuery(AssociatedInfoFilter{TextFilter: "!bill:b1 !journal:j1 !journal:j2"}, TargetView)
	want := []string{"associated_info_view.bill_id NOT IN (?)", "associated_info_view.journal_id NOT IN (?, ?)"}
	if len(frags) != 2 || frags[0].SQL != want[0] || frags[1].SQL != want[1] {
		t.Errorf("got %v, want %v", frags, want)
	}

	lookup := &fakeTitles{titles: map[string]string{"tag:t1": "Food"}}
	text, err := AssociatedInfoFilterToText(context.Background(), lookup, AssociatedInfoFilter{TextFilter: "tag:t1 !tag:t2"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(text, []string{"Tag is Food", "Tag is not t2"}) {
		t.Errorf("text = %v", text)
	}
}

func TestJournalFilterToQuery(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	t.Run("nested account subquery", func(t *testing.T) {
		frags := JournalFilterToQuery(JournalFilter{TextFilter: "account:cash type:asset"}, WithNow(now))
		if len(frags) != 1 {
			t.Fatalf("expected one fragment, got %v", frags)
		}
		if !strings.HasPrefix(frags[0].SQL, "journal_view.account_id IN (SELECT account_view.id FROM account_view WHERE ") {
			t.Errorf("SQL = %q", frags[0].SQL)
		}
		if !reflect.DeepEqual(frags[0].Args, []any{"%cash%", "asset"}) {
			t.Errorf("Args = %v", frags[0].Args)
		}
	})

	t.Run("labels join through journal_label", func(t *testing.T) {
		frags := JournalFilterToQuery(JournalFilter{TextFilter: "label:urgent"}, WithNow(now))
		if len(frags) != 1 || !strings.Contains(frags[0].SQL, "JOIN label_view ON label_view.id = journal_label.label_id") {
			t.Errorf("got %v", frags)
		}
	})

	t.Run("span intersects explicit dates", func(t *testing.T) {
		frags := JournalFilterToQuery(JournalFilter{TextFilter: "span:thisMonth after:2024-05-10"}, WithNow(now))
		want := []sqlq.Fragment{
			{SQL: "journal_view.date >= ?", Args: []any{"2024-05-10"}},
			{SQL: "journal_view.date <= ?", Args: []any{"2024-05-31"}},
		}
		if !reflect.DeepEqual(frags, want) {
			t.Errorf("got %#v", frags)
		}
	})

	t.Run("payee", func(t *testing.T) {
		frags := JournalFilterToQuery(JournalFilter{TextFilter: "!payee:acme"}, WithNow(now))
		if len(frags) != 1 || !strings.HasPrefix(frags[0].SQL, "NOT (lower(journal_view.payee_title)") {
			t.Errorf("got %v", frags)
		}
	})
}

func TestDateSpanRange(t *testing.T) {
	now := time.Date(2024, 5, 15, 9, 30, 0, 0, time.UTC) // Wednesday
	tests := []struct {
		span       DateSpan
		start, end string
	}{
		{SpanToday, "2024-05-15", "2024-05-15"},
		{SpanThisWeek, "2024-05-13", "2024-05-19"},
		{SpanLastWeek, "2024-05-06", "2024-05-12"},
		{SpanThisMonth, "2024-05-01", "2024-05-31"},
		{SpanLastMonth, "2024-04-01", "2024-04-30"},
		{SpanThisQuarter, "2024-04-01", "2024-06-30"},
		{SpanLastQuarter, "2024-01-01", "2024-03-31"},
		{SpanThisYear, "2024-01-01", "2024-12-31"},
		{SpanLastYear, "2023-01-01", "2023-12-31"},
		{SpanLast7Days, "2024-05-09", "2024-05-15"},
		{SpanLast12Months, "2023-05-16", "2024-05-15"},
	}
	for _, tt := range tests {
		t.Run(string(tt.span), func(t *testing.T) {
			start, end, ok := tt.span.Range(now)
			if !ok {
				t.Fatal("expected known span")
			}
			if got := start.Format(time.DateOnly); got != tt.start {
				t.Errorf("start = %s, want %s", got, tt.start)
			}
			if got := end.Format(time.DateOnly); got != tt.end {
				t.Errorf("end = %s, want %s", got, tt.end)
			}
		})
	}
	if _, _, ok := DateSpan("fortnight").Range(now); ok {
		t.Error("unknown span should not resolve")
	}
}

type fakeTitles struct {
	titles map[string]string
	calls  int
	err    error
}

func (f *fakeTitles) Title(_ context.Context, e Entity, id string) (string, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	t, ok := f.titles[string(e)+":"+id]
	return t, ok, nil
}

func TestFilterToText(t *testing.T) {
	ctx := context.Background()

	t.Run("showing all", func(t *testing.T) {
		got, err := AccountFilterToText(ctx, nil, AccountFilter{})
		if err != nil || !reflect.DeepEqual(got, []string{"Showing All"}) {
			t.Errorf("got %v, %v", got, err)
		}
		got, _ = AccountFilterToText(ctx, nil, AccountFilter{}, WithPrefix("Test"))
		if !reflect.DeepEqual(got, []string{"Test Showing All"}) {
			t.Errorf("got %v", got)
		}
		got, _ = TagFilterToText(ctx, nil, TagFilter{}, WithoutAllText())
		if len(got) != 0 {
			t.Errorf("got %v", got)
		}
	})

	t.Run("ids resolve to titles", func(t *testing.T) {
		lookup := &fakeTitles{titles: map[string]string{"account:a1": "Checking"}}
		f := AccountFilter{BasicFilter: BasicFilter{IDTitleFilter: IDTitleFilter{IDArray: []string{"a1", "a2"}}}}
		got, err := AccountFilterToText(ctx, lookup, f)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, []string{"Is one of Checking, a2"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("single and excluded", func(t *testing.T) {
		lookup := &fakeTitles{titles: map[string]string{"bill:b1": "Rent"}}
		f := BillFilter{BasicFilter: BasicFilter{IDTitleFilter: IDTitleFilter{ExcludeIDArray: []string{"b1"}}}}
		got, _ := BillFilterToText(ctx, lookup, f)
		if !reflect.DeepEqual(got, []string{"Is not Rent"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("many values skip lookups", func(t *testing.T) {
		lookup := &fakeTitles{}
		f := AccountFilter{BasicFilter: BasicFilter{IDTitleFilter: IDTitleFilter{IDArray: []string{"1", "2", "3", "4", "5"}}}}
		got, _ := AccountFilterToText(ctx, lookup, f)
		if !reflect.DeepEqual(got, []string{"Is one of 5 values"}) {
			t.Errorf("got %v", got)
		}
		if lookup.calls != 0 {
			t.Errorf("lookup called %d times", lookup.calls)
		}
	})

	t.Run("titles are cached per call", func(t *testing.T) {
		lookup := &fakeTitles{titles: map[string]string{"tag:t1": "Food"}}
		f := TagFilter{BasicFilter: BasicFilter{IDTitleFilter: IDTitleFilter{
			IDArray:        []string{"t1"},
			ExcludeIDArray: []string{"t1"},
		}}}
		got, _ := TagFilterToText(ctx, lookup, f)
		if !reflect.DeepEqual(got, []string{"Is Food", "Is not Food"}) {
			t.Errorf("got %v", got)
		}
		if lookup.calls != 1 {
			t.Errorf("lookup called %d times, want 1", lookup.calls)
		}
	})

	t.Run("lookup errors propagate", func(t *testing.T) {
		boom := errors.New("boom")
		f := AccountFilter{BasicFilter: BasicFilter{IDTitleFilter: IDTitleFilter{IDArray: []string{"a1"}}}}
		if _, err := AccountFilterToText(ctx, &fakeTitles{err: boom}, f); !errors.Is(err, boom) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("account sentences", func(t *testing.T) {
		got, _ := AccountFilterToText(ctx, nil, accountWith("type:asset cash: !disabled:"), WithPrefix("Filter"))
		want := []string{"Filter Is Not Disabled", "Filter Type is asset", "Filter Is Cash"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("journal with nested filters", func(t *testing.T) {
		got, err := JournalFilterToText(ctx, nil, JournalFilter{TextFilter: "coffee max:10 account:Cash span:lastMonth"})
		if err != nil {
			t.Fatal(err)
		}
		want := []string{
			"Description is coffee",
			"Amount is at most 10",
			"Date is within Last Month",
			"Account Title is Cash",
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v", got)
		}
	})
}

func TestArrayToText(t *testing.T) {
	tests := []struct {
		name string
		vals []string
		want string
	}{
		{"empty", nil, ""},
		{"one", []string{"a"}, "Payee is a"},
		{"few", []string{"a", "b", "c", "d"}, "Payee is one of a, b, c, d"},
		{"many", []string{"a", "b", "c", "d", "e"}, "Payee is one of 5 values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ArrayToText("Payee", tt.vals, nil)
			if err != nil || got != tt.want {
				t.Errorf("got %q, %v", got, err)
			}
		})
	}

	upper := func(v string) (string, error) { return strings.ToUpper(v), nil }
	got, _ := ExcludedArrayToText("Payee", []string{"a", "b"}, upper)
	if got != "Payee is not one of A, B" {
		t.Errorf("excluded = %q", got)
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName(EntityAssociatedInfo); got != "Associated Info" {
		t.Errorf("got %q", got)
	}
}
