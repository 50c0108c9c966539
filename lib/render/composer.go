// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"

	"github.com/bureau-foundation/ftl/lib/depgraph"
	"github.com/bureau-foundation/ftl/lib/model"
)

var variablePattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// composer places rendered page HTML into a template chain.
type composer struct {
	templates map[string]Template
	maxDepth  int
	// variables are substituted HTML-escaped. content is substituted
	// verbatim.
	variables map[string]string
}

// pageVariables returns the template variables a page provides.
func pageVariables(page model.Page) map[string]string {
	variables := map[string]string{
		"path":  page.Path,
		"title": page.Title,
		"tags":  strings.Join(page.Tags, ", "),
	}
	for key, value := range page.Attributes {
		if _, taken := variables[key]; taken {
			continue
		}
		switch value.(type) {
		case string, bool, int, int64, uint64, float64:
			variables[key] = fmt.Sprint(value)
		}
	}
	return variables
}

// compose renders name with content as its {{ content }}, then each
// template it extends with the result, up the chain.
func (c *composer) compose(name, content string) (string, error) {
	var chain []string
	for current := name; current != ""; {
		if slices.Contains(chain, current) {
			return "", fmt.Errorf("template inheritance cycle: %s", strings.Join(append(chain, current), " -> "))
		}
		if len(chain) > c.maxDepth {
			return "", fmt.Errorf("template %s extends more than %d levels deep", name, c.maxDepth)
		}
		chain = append(chain, current)

		template, ok := c.templates[current]
		if !ok {
			return "", fmt.Errorf("template %q does not exist", current)
		}
		current = parent(template.Source)
	}

	for _, templateName := range chain {
		expanded, err := c.expand(templateName, nil)
		if err != nil {
			return "", err
		}
		content = c.substitute(expanded, content)
	}
	return content, nil
}

// expand returns the source of name with includes inlined and every
// other directive removed. stack is the include path leading here.
func (c *composer) expand(name string, stack []string) (string, error) {
	if slices.Contains(stack, name) {
		return "", fmt.Errorf("template include cycle: %s", strings.Join(append(stack, name), " -> "))
	}
	if len(stack) > c.maxDepth {
		return "", fmt.Errorf("template includes nest more than %d levels deep at %s", c.maxDepth, name)
	}
	template, ok := c.templates[name]
	if !ok {
		return "", fmt.Errorf("template %q does not exist", name)
	}
	stack = append(slices.Clone(stack), name)
	return depgraph.ReplaceDirectives(template.Source, func(directive depgraph.Directive) (string, error) {
		if directive.Kind != depgraph.Include {
			return "", nil
		}
		return c.expand(directive.Name, stack)
	})
}

// substitute replaces variables in source. content is inserted as is.
func (c *composer) substitute(source, content string) string {
	return variablePattern.ReplaceAllStringFunc(source, func(match string) string {
		name := variablePattern.FindStringSubmatch(match)[1]
		if name == "content" {
			return content
		}
		return html.EscapeString(c.variables[name])
	})
}

// parent returns the template source extends, or "".
func parent(source string) string {
	for _, directive := range depgraph.ParseDirectives(source) {
		if directive.Kind == depgraph.Extends {
			return directive.Name
		}
	}
	return ""
}
