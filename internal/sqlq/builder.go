package sqlq

// Builder accumulates fragments for one filter. Every helper is a no-op when
// its input carries no constraint (nil pointer, empty string, empty slice).
type Builder struct {
	frags []Fragment
}

// Add appends a fragment.
func (b *Builder) Add(f Fragment) {
	b.frags = append(b.frags, f)
}

// AddAll appends fragments wrapped as one conjunction.
func (b *Builder) AddAll(frags []Fragment) {
	if len(frags) == 0 {
		return
	}
	b.frags = append(b.frags, And(frags))
}

// Fragments returns the accumulated fragments.
func (b *Builder) Fragments() []Fragment {
	return b.frags
}

// In adds "col IN (...)". Empty values mean no constraint.
func In[T ~string](b *Builder, col string, values []T) {
	if len(values) == 0 {
		return
	}
	b.Add(Fragment{SQL: col + " IN (" + placeholders(len(values)) + ")", Args: toArgs(values)})
}

// NotIn adds "col NOT IN (...)". Empty values mean no constraint.
func NotIn[T ~string](b *Builder, col string, values []T) {
	if len(values) == 0 {
		return
	}
	b.Add(Fragment{SQL: col + " NOT IN (" + placeholders(len(values)) + ")", Args: toArgs(values)})
}

// LikeAny adds a case-insensitive substring match against any of the values.
func (b *Builder) LikeAny(col string, values []string) {
	if f, ok := likeAny(col, values); ok {
		b.Add(f)
	}
}

// NotLikeAny adds the negation of LikeAny.
func (b *Builder) NotLikeAny(col string, values []string) {
	if f, ok := likeAny(col, values); ok {
		b.Add(Not(f))
	}
}

func likeAny(col string, values []string) (Fragment, bool) {
	if len(values) == 0 {
		return Fragment{}, false
	}
	parts := make([]Fragment, 0, len(values))
	for _, v := range values {
		parts = append(parts, Fragment{
			SQL:  "lower(" + col + ") LIKE lower(?) ESCAPE '\\'",
			Args: []any{"%" + escapeLike(v) + "%"},
		})
	}
	return Or(parts), true
}

// Eq adds "col = ?" when value is non-empty.
func Eq[T ~string](b *Builder, col string, value T) {
	if value == "" {
		return
	}
	b.Add(Fragment{SQL: col + " = ?", Args: []any{string(value)}})
}

// Bool adds "col = 1" or "col = 0" when value is set.
func (b *Builder) Bool(col string, value *bool) {
	if value == nil {
		return
	}
	if *value {
		b.Add(Raw(col + " = 1"))
		return
	}
	b.Add(Raw(col + " = 0"))
}

// Cmp adds "col <op> ?" for a numeric bound when set.
func (b *Builder) Cmp(col, op string, value *float64) {
	if value == nil {
		return
	}
	b.Add(Fragment{SQL: col + " " + op + " ?", Args: []any{*value}})
}

// CmpText adds "col <op> ?" for a text bound (dates) when non-empty.
func (b *Builder) CmpText(col, op, value string) {
	if value == "" {
		return
	}
	b.Add(Fragment{SQL: col + " " + op + " ?", Args: []any{value}})
}

// Present adds "expr > 0" for true and "expr IS NULL" for false.
func (b *Builder) Present(expr string, value *bool) {
	if value == nil {
		return
	}
	if *value {
		b.Add(Raw(expr + " > 0"))
		return
	}
	b.Add(Raw(expr + " IS NULL"))
}

func toArgs[T ~string](values []T) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = string(v)
	}
	return args
}
