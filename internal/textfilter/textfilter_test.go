package textfilter

import (
	"reflect"
	"testing"
)

func TestSplitInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", []string{}},
		{"plain words", "coffee  shop", []string{"coffee", "shop"}},
		{"key value", "title:abc !title:def", []string{"title:abc", "!title:def"}},
		{"quoted key value", `title:"fast food" other`, []string{`title:"fast food"`, "other"}},
		{"negated quote", `!"fast food" x`, []string{`!"fast food"`, "x"}},
		{"bare quote", `"fast food"`, []string{`"fast food"`}},
		{"empty payload key", "disabled: cash:", []string{"disabled:", "cash:"}},
		{"unterminated quote", `"fast food`, []string{`"fast`, "food"}},
		{"mid token quote", `party"text more`, []string{`party"text`, "more"}},
		{"composite", `!type:"income|expense"`, []string{`!type:"income|expense"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitInput(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitInput(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestUnpack(t *testing.T) {
	tests := []struct {
		token, key, want string
	}{
		{`title:"fast food"`, "title:", "fast food"},
		{`TITLE:abc`, "title:", "abc"},
		{`"quoted"`, "", "quoted"},
		{`other:abc`, "title:", "other:abc"},
		{`"`, "", `"`},
		{`party"text`, "", `party"text`},
	}
	for _, tt := range tests {
		if got := Unpack(tt.token, tt.key); got != tt.want {
			t.Errorf("Unpack(%q, %q) = %q, want %q", tt.token, tt.key, got, tt.want)
		}
	}
}

func TestCompareTextNumber(t *testing.T) {
	ninety := 90.0
	hundred := 100.0

	tests := []struct {
		name     string
		existing *float64
		value    string
		mode     Mode
		want     float64
	}{
		{"max raises existing", &ninety, "100", Max, 100},
		{"max keeps existing", &hundred, "90", Max, 100},
		{"min lowers existing", &hundred, "90", Min, 90},
		{"no existing", nil, "42.5", Min, 42.5},
		{"non numeric is zero", nil, "abc", Max, 0},
		{"non numeric participates", &ninety, "abc", Min, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := tt.existing
			CompareTextNumber(&dst, tt.value, tt.mode)
			if dst == nil || *dst != tt.want {
				t.Fatalf("got %v, want %v", dst, tt.want)
			}
		})
	}
}

func TestCompareTextDate(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		value    string
		mode     Mode
		want     string
	}{
		{"full date", "", "2020-01-05", Min, "2020-01-05"},
		{"short year padded", "", "21-3-7", Min, "2021-03-07"},
		{"compact", "", "20220115", Max, "2022-01-15"},
		{"invalid day untouched", "2020-01-01", "2020-02-30", Min, "2020-01-01"},
		{"invalid month untouched", "", "2020-13-01", Min, ""},
		{"not a date", "2020-01-01", "tuesday", Max, "2020-01-01"},
		{"min keeps earlier", "2020-01-01", "2021-01-01", Min, "2020-01-01"},
		{"max keeps later", "2020-01-01", "2021-01-01", Max, "2021-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := tt.existing
			CompareTextDate(&dst, tt.value, tt.mode)
			if dst != tt.want {
				t.Errorf("got %q, want %q", dst, tt.want)
			}
		})
	}
}

func TestAddEnumToArray(t *testing.T) {
	type kind string
	valid := []kind{"a", "b"}
	var dst []kind
	AddEnumToArray(&dst, "a", valid)
	AddEnumToArray(&dst, "A", valid)
	AddEnumToArray(&dst, "zzz", valid)
	AddEnumToArray(&dst, "b", valid)
	if !reflect.DeepEqual(dst, []kind{"a", "b"}) {
		t.Errorf("unexpected %v", dst)
	}
}

func TestSplitComposite(t *testing.T) {
	got := SplitComposite(" Asset, liability|INCOME ,, ")
	want := []string{"asset", "liability", "income"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

type nested struct {
	TextFilter string
}

type sample struct {
	TextFilter   string
	Titles       []string
	Excluded     []string
	Flag         *bool
	Child        *nested
	prefixTarget []string
}

func newSampleHandler() *Handler[sample] {
	return NewHandler(
		func(s *sample) *string { return &s.TextFilter },
		func(s *sample, v string) { AddToArray(&s.Titles, v) },
		func(s *sample, v string) { AddToArray(&s.Excluded, v) },
		[]Rule[sample]{
			{Keys: []string{"title:long:"}, Update: func(s *sample, v string) { AddToArray(&s.prefixTarget, v) }},
			{Keys: []string{"title:"}, Update: func(s *sample, v string) { AddToArray(&s.Titles, v) }},
			{Keys: []string{"!title:"}, Update: func(s *sample, v string) { AddToArray(&s.Excluded, v) }},
			{Keys: []string{"flag:"}, Update: func(s *sample, _ string) { SetBool(&s.Flag, true) }},
			{Keys: []string{"!flag:"}, Update: func(s *sample, _ string) { SetBool(&s.Flag, false) }},
			{Keys: []string{"child:"}, Update: func(s *sample, v string) {
				Defer(&s.Child, func(n *nested) *string { return &n.TextFilter }, Quote(v))
			}},
		},
	)
}

func TestHandlerProcess(t *testing.T) {
	h := newSampleHandler()

	t.Run("no text is identity", func(t *testing.T) {
		in := sample{Titles: []string{"x"}}
		got := h.Process(in)
		if !reflect.DeepEqual(got, in) {
			t.Errorf("got %+v, want %+v", got, in)
		}
	})

	t.Run("array append keeps order and duplicates", func(t *testing.T) {
		got := h.Process(sample{TextFilter: "title:a title:b title:a"})
		if !reflect.DeepEqual(got.Titles, []string{"a", "b", "a"}) {
			t.Errorf("Titles = %v", got.Titles)
		}
		if got.TextFilter != "" {
			t.Errorf("TextFilter not cleared: %q", got.TextFilter)
		}
	})

	t.Run("default routing", func(t *testing.T) {
		got := h.Process(sample{TextFilter: `foo !bar !"fast food"`})
		if !reflect.DeepEqual(got.Titles, []string{"foo"}) {
			t.Errorf("Titles = %v", got.Titles)
		}
		if !reflect.DeepEqual(got.Excluded, []string{"bar", "fast food"}) {
			t.Errorf("Excluded = %v", got.Excluded)
		}
	})

	t.Run("case insensitive keys", func(t *testing.T) {
		got := h.Process(sample{TextFilter: `TITLE:"Fast Food"`})
		if !reflect.DeepEqual(got.Titles, []string{"Fast Food"}) {
			t.Errorf("Titles = %v", got.Titles)
		}
	})

	t.Run("rule order wins", func(t *testing.T) {
		got := h.Process(sample{TextFilter: "title:long:x"})
		if !reflect.DeepEqual(got.prefixTarget, []string{"x"}) || len(got.Titles) != 0 {
			t.Errorf("unexpected %+v", got)
		}
	})

	t.Run("last bool wins", func(t *testing.T) {
		got := h.Process(sample{TextFilter: "flag: !flag:"})
		if got.Flag == nil || *got.Flag {
			t.Errorf("Flag = %v, want false", got.Flag)
		}
	})

	t.Run("nested clauses concatenate", func(t *testing.T) {
		got := h.Process(sample{TextFilter: `child:a child:"b c"`})
		if got.Child == nil || got.Child.TextFilter != `a "b c"` {
			t.Errorf("Child = %+v", got.Child)
		}
	})

	t.Run("input is not mutated", func(t *testing.T) {
		base := make([]string, 1, 4)
		base[0] = "keep"
		in := sample{TextFilter: "title:new", Titles: base}
		got := h.Process(in)
		if in.TextFilter != "title:new" {
			t.Error("input text filter changed")
		}
		if len(in.Titles) != 1 || base[:2][1] == "new" {
			t.Error("input slice backing array was written")
		}
		if !reflect.DeepEqual(got.Titles, []string{"keep", "new"}) {
			t.Errorf("Titles = %v", got.Titles)
		}
	})
}
