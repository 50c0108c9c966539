// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package depgraph

import (
	"regexp"
	"slices"
)

// DirectiveKind is the kind of a template reference.
type DirectiveKind string

const (
	Include DirectiveKind = "include"
	Import  DirectiveKind = "import"
	From    DirectiveKind = "from"
	Extends DirectiveKind = "extends"
)

// Directive is one template reference found in a template.
type Directive struct {
	Kind DirectiveKind
	// Name is the referenced template, relative to the template root.
	Name string
}

var directivePatterns = map[DirectiveKind]*regexp.Regexp{
	Include: regexp.MustCompile(`\{%-?\s*include\s+["']([^"']+)["'][^%]*-?%\}`),
	Import:  regexp.MustCompile(`\{%-?\s*import\s+["']([^"']+)["']\s+as\s+\w+\s*-?%\}`),
	From:    regexp.MustCompile(`\{%-?\s*from\s+["']([^"']+)["']\s+import\s+[^%]+-?%\}`),
	Extends: regexp.MustCompile(`\{%-?\s*extends\s+["']([^"']+)["']\s*-?%\}`),
}

// ParseDirectives returns the template references in source, in order
// of first appearance. Repeated references to one name are reported
// once per kind.
func ParseDirectives(source string) []Directive {
	type located struct {
		offset    int
		directive Directive
	}
	var found []located
	seen := make(map[Directive]bool)
	for kind, pattern := range directivePatterns {
		for _, match := range pattern.FindAllStringSubmatchIndex(source, -1) {
			directive := Directive{Kind: kind, Name: source[match[2]:match[3]]}
			if seen[directive] {
				continue
			}
			seen[directive] = true
			found = append(found, located{offset: match[0], directive: directive})
		}
	}
	slices.SortFunc(found, func(a, b located) int { return a.offset - b.offset })

	directives := make([]Directive, len(found))
	for i, entry := range found {
		directives[i] = entry.directive
	}
	return directives
}

// ReferencedNames returns the distinct template names source refers
// to, in order of first appearance.
func ReferencedNames(source string) []string {
	var names []string
	for _, directive := range ParseDirectives(source) {
		if !slices.Contains(names, directive.Name) {
			names = append(names, directive.Name)
		}
	}
	return names
}

// ReplaceDirectives returns source with every directive replaced by the
// text replace returns for it. Text returned by replace is not scanned
// again. The first error replace returns stops further replacement.
func ReplaceDirectives(source string, replace func(Directive) (string, error)) (string, error) {
	var firstErr error
	for _, kind := range []DirectiveKind{Extends, Import, From, Include} {
		pattern := directivePatterns[kind]
		source = pattern.ReplaceAllStringFunc(source, func(match string) string {
			if firstErr != nil {
				return match
			}
			directive := Directive{Kind: kind, Name: pattern.FindStringSubmatch(match)[1]}
			text, err := replace(directive)
			if err != nil {
				firstErr = err
				return match
			}
			return text
		})
	}
	return source, firstErr
}
