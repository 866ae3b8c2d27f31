package binder

import (
	"context"
	"fmt"
	"strings"

	"github.com/gklyne/annalist-sub001/annal"
	"github.com/gklyne/annalist-sub001/errors"
	"github.com/gklyne/annalist-sub001/types"
)

// Selector is a parsed list entity selector. The grammar:
//
//	sel    := ALL | term { "&&" term }
//	term   := <curie-or-uri> in [@type]
//	        | [<property>] == <literal>
//
// "[@type]" matches against the entity's declared types expanded by the
// supertype closure; a property term compares the stored value (or any
// member of a stored list) with the literal.
type Selector struct {
	source string
	terms  []selectorTerm
}

type selectorTerm struct {
	typeURI  string // set for "<uri> in [@type]" terms
	property string // set for "[<prop>]==<literal>" terms
	literal  string
}

// ParseSelector parses a selector expression. The empty string and "ALL"
// both select everything.
func ParseSelector(src string) (Selector, error) {
	sel := Selector{source: src}
	trimmed := strings.TrimSpace(src)
	if trimmed == "" || trimmed == "ALL" {
		return sel, nil
	}
	for _, part := range strings.Split(trimmed, "&&") {
		term, err := parseTerm(strings.TrimSpace(part))
		if err != nil {
			return Selector{}, err
		}
		sel.terms = append(sel.terms, term)
	}
	return sel, nil
}

func parseTerm(part string) (selectorTerm, error) {
	if part == "" {
		return selectorTerm{}, badSelector(part, "empty term")
	}
	if uri, ok := strings.CutSuffix(part, "in [@type]"); ok {
		uri = strings.TrimSpace(uri)
		uri = unquote(uri)
		if uri == "" {
			return selectorTerm{}, badSelector(part, "missing type URI")
		}
		return selectorTerm{typeURI: uri}, nil
	}
	if strings.HasPrefix(part, "[") {
		end := strings.Index(part, "]")
		if end < 0 {
			return selectorTerm{}, badSelector(part, "unterminated property reference")
		}
		property := strings.TrimSpace(part[1:end])
		rest := strings.TrimSpace(part[end+1:])
		literal, ok := strings.CutPrefix(rest, "==")
		if !ok {
			return selectorTerm{}, badSelector(part, "expected ==")
		}
		if property == "" {
			return selectorTerm{}, badSelector(part, "missing property")
		}
		return selectorTerm{property: property, literal: unquote(strings.TrimSpace(literal))}, nil
	}
	return selectorTerm{}, badSelector(part, "unrecognised term")
}

func badSelector(part, reason string) error {
	return errors.WrapValidation(errors.ErrBadSelector, "Selector", "Parse",
		fmt.Sprintf("parse %q: %s", part, reason))
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// String returns the selector's source expression.
func (s Selector) String() string { return s.source }

// SelectsAll reports whether the selector matches every entity.
func (s Selector) SelectsAll() bool { return len(s.terms) == 0 }

// MatchSelector evaluates a selector against entity values. Type terms
// test the entity's declared @type URIs expanded through the supertype
// closure.
func (b *Binder) MatchSelector(ctx context.Context, sel Selector, values types.Values) (bool, error) {
	for _, term := range sel.terms {
		if term.typeURI != "" {
			ok, err := b.matchType(ctx, term.typeURI, values)
			if err != nil || !ok {
				return false, err
			}
			continue
		}
		if !matchProperty(term, values) {
			return false, nil
		}
	}
	return true, nil
}

func (b *Binder) matchType(ctx context.Context, uri string, values types.Values) (bool, error) {
	for _, declared := range values.StringList(annal.KeyType) {
		if declared == uri {
			return true, nil
		}
		supers, err := b.regs.Types.SupertypeURIs(ctx, declared)
		if err != nil {
			return false, err
		}
		for _, super := range supers {
			if super == uri {
				return true, nil
			}
		}
	}
	return false, nil
}

func matchProperty(term selectorTerm, values types.Values) bool {
	v, ok := values[term.property]
	if !ok {
		return false
	}
	switch value := v.(type) {
	case string:
		return value == term.literal
	case bool:
		return fmt.Sprintf("%t", value) == term.literal
	case []any:
		for _, item := range value {
			if s, ok := item.(string); ok && s == term.literal {
				return true
			}
		}
		return false
	default:
		return fmt.Sprintf("%v", value) == term.literal
	}
}
