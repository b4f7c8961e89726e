package textfilter

import (
	"strings"
)

// UpdateFunc folds a token payload into a filter.
type UpdateFunc[F any] func(f *F, payload string)

// Rule binds one or more colon-terminated key aliases to an update function.
type Rule[F any] struct {
	Keys   []string
	Update UpdateFunc[F]
}

// Handler applies an ordered rule table to the text filter of F.
// The first rule with an alias that prefixes the token wins.
type Handler[F any] struct {
	rules            []Rule[F]
	text             func(*F) *string
	onDefault        UpdateFunc[F]
	onDefaultExclude UpdateFunc[F]
}

// NewHandler builds a handler. text returns the address of the filter's raw
// text field; onDefault and onDefaultExclude receive unmatched tokens.
func NewHandler[F any](text func(*F) *string, onDefault, onDefaultExclude UpdateFunc[F], rules ...[]Rule[F]) *Handler[F] {
	h := &Handler[F]{
		text:             text,
		onDefault:        onDefault,
		onDefaultExclude: onDefaultExclude,
	}
	for _, group := range rules {
		for _, r := range group {
			keys := make([]string, len(r.Keys))
			for i, k := range r.Keys {
				keys[i] = strings.ToLower(k)
			}
			h.rules = append(h.rules, Rule[F]{Keys: keys, Update: r.Update})
		}
	}
	return h
}

// Process returns a copy of in with its text filter folded into structured
// fields and cleared. A filter without text is returned unchanged.
func (h *Handler[F]) Process(in F) F {
	raw := *h.text(&in)
	if raw == "" {
		return in
	}

	out := in
	*h.text(&out) = ""
	for _, tok := range SplitInput(raw) {
		h.apply(&out, tok)
	}
	return out
}

func (h *Handler[F]) apply(f *F, tok string) {
	for _, r := range h.rules {
		for _, key := range r.Keys {
			if hasPrefixFold(tok, key) {
				r.Update(f, Unpack(tok, key))
				return
			}
		}
	}

	plain := Unpack(tok, "")
	if strings.HasPrefix(plain, "!") {
		if h.onDefaultExclude != nil {
			h.onDefaultExclude(f, Unpack(plain[1:], ""))
		}
		return
	}
	if h.onDefault != nil {
		h.onDefault(f, plain)
	}
}

// Keys returns every alias in match order.
func (h *Handler[F]) Keys() []string {
	var out []string
	for _, r := range h.rules {
		out = append(out, r.Keys...)
	}
	return out
}
