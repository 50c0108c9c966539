// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"slices"
	"testing"
)

func TestParseDirectives(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []Directive
	}{
		{
			name:   "none",
			source: "<p>{{ title }}</p>",
		},
		{
			name:   "include",
			source: `<nav>{% include "partials/nav.html" %}</nav>`,
			want:   []Directive{{Kind: Include, Name: "partials/nav.html"}},
		},
		{
			name:   "include with options",
			source: `{% include "sidebar.html" ignore missing %}`,
			want:   []Directive{{Kind: Include, Name: "sidebar.html"}},
		},
		{
			name:   "import",
			source: `{% import "macros.html" as m %}`,
			want:   []Directive{{Kind: Import, Name: "macros.html"}},
		},
		{
			name:   "from",
			source: `{% from "macros.html" import button, link %}`,
			want:   []Directive{{Kind: From, Name: "macros.html"}},
		},
		{
			name:   "extends with single quotes",
			source: `{% extends 'base.html' %}`,
			want:   []Directive{{Kind: Extends, Name: "base.html"}},
		},
		{
			name:   "trim markers",
			source: `{%- include "a.html" -%}`,
			want:   []Directive{{Kind: Include, Name: "a.html"}},
		},
		{
			name: "document order and dedup",
			source: `{% extends "base.html" %}
{% include "b.html" %}
{% from "m.html" import x %}
{% include "b.html" %}`,
			want: []Directive{
				{Kind: Extends, Name: "base.html"},
				{Kind: Include, Name: "b.html"},
				{Kind: From, Name: "m.html"},
			},
		},
		{
			name:   "import without alias is not a directive",
			source: `{% import "macros.html" %}`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ParseDirectives(test.source)
			if !slices.Equal(got, test.want) {
				t.Fatalf("ParseDirectives = %v, want %v", got, test.want)
			}
		})
	}
}

func TestReferencedNamesDistinct(t *testing.T) {
	source := `{% import "m.html" as m %}{% from "m.html" import x %}{% include "n.html" %}`
	got := ReferencedNames(source)
	want := []string{"m.html", "n.html"}
	if !slices.Equal(got, want) {
		t.Fatalf("ReferencedNames = %v, want %v", got, want)
	}
}

func TestReplaceDirectives(t *testing.T) {
	source := `{% extends "base.html" %}{% import "m.html" as m %}<nav>{% include "nav.html" %}</nav>`
	got, err := ReplaceDirectives(source, func(directive Directive) (string, error) {
		if directive.Kind == Include {
			return "[" + directive.Name + "]", nil
		}
		return "", nil
	})
	if err != nil {
		t.Fatalf("ReplaceDirectives: %v", err)
	}
	if want := "<nav>[nav.html]</nav>"; got != want {
		t.Fatalf("ReplaceDirectives = %q, want %q", got, want)
	}
}
