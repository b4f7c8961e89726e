package filters

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestParseEntity(t *testing.T) {
	tests := []struct {
		in   string
		want Entity
	}{
		{"journal", EntityJournal},
		{" Account ", EntityAccount},
		{"associated-info", EntityAssociatedInfo},
		{"QUERY_LOG", EntityQueryLog},
	}
	for _, tt := range tests {
		got, err := ParseEntity(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseEntity(%q) = %q, %v", tt.in, got, err)
		}
	}
	if _, err := ParseEntity("payee"); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestCompileMatchesEntityCompilers(t *testing.T) {
	for _, e := range Entities {
		t.Run(string(e), func(t *testing.T) {
			frags, err := Compile(e, "id:x1", TargetView)
			if err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if len(frags) != 1 {
				t.Fatalf("expected one fragment, got %+v", frags)
			}
			if !reflect.DeepEqual(frags[0].Args, []any{"x1"}) {
				t.Errorf("Args = %v", frags[0].Args)
			}
		})
	}

	if _, err := Compile("payee", "", TargetView); !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("expected ErrUnknownEntity, got %v", err)
	}
}

func TestDescribeEveryEntity(t *testing.T) {
	for _, e := range Entities {
		got, err := Describe(context.Background(), &fakeTitles{}, e, "")
		if err != nil {
			t.Fatalf("%s: %v", e, err)
		}
		if !reflect.DeepEqual(got, []string{ShowingAll}) {
			t.Errorf("%s: got %v", e, got)
		}
	}
}
