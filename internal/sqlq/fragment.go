// Package sqlq builds composable SQL predicate fragments bound to named relations.
//
// A Fragment is a boolean SQL expression plus its positional arguments. Fragments
// produced for different filter fields are ANDed by the caller. Negative array
// fragments use NOT IN, so a NULL column value never matches them.
package sqlq

import (
	"strings"
)

// Fragment is one boolean condition with its bound arguments.
type Fragment struct {
	SQL  string
	Args []any
}

// Raw wraps literal SQL and arguments into a fragment.
func Raw(sql string, args ...any) Fragment {
	return Fragment{SQL: sql, Args: args}
}

// And joins fragments with AND. An empty list yields an always-true fragment.
func And(frags []Fragment) Fragment {
	return join(frags, " AND ")
}

// Or joins fragments with OR. An empty list yields an always-true fragment.
func Or(frags []Fragment) Fragment {
	return join(frags, " OR ")
}

func join(frags []Fragment, sep string) Fragment {
	if len(frags) == 0 {
		return Fragment{SQL: "1 = 1"}
	}
	if len(frags) == 1 {
		return frags[0]
	}

	collected := make([]string, 0, len(frags))
	args := []any{}
	for _, f := range frags {
		collected = append(collected, f.SQL)
		args = append(args, f.Args...)
	}
	return Fragment{SQL: "(" + strings.Join(collected, sep) + ")", Args: args}
}

// Not negates a fragment.
func Not(f Fragment) Fragment {
	return Fragment{SQL: "NOT (" + f.SQL + ")", Args: f.Args}
}

// Where renders fragments as a WHERE clause, or an empty string when there are none.
func Where(frags []Fragment) (string, []any) {
	if len(frags) == 0 {
		return "", nil
	}
	f := And(frags)
	return " WHERE " + f.SQL, f.Args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// escapeLike escapes LIKE wildcards in a user value, using backslash as escape.
func escapeLike(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(v)
}
