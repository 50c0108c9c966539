// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package frontmatter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/ftl/lib/model"
)

// Error reports frontmatter that could not be parsed.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("frontmatter: %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Parser parses page frontmatter. The zero value is ready to use.
type Parser struct{}

// ParsePage parses the frontmatter of file, whose text is content.
func (Parser) ParsePage(file model.InputFile, content string) (model.Page, error) {
	page := model.Page{ID: file.ID, Path: file.Path}

	fields, offset, err := split(content)
	if err != nil {
		return model.Page{}, &Error{Path: file.Path, Err: err}
	}
	page.Offset = offset
	if err := apply(&page, fields); err != nil {
		return model.Page{}, &Error{Path: file.Path, Err: err}
	}
	return page, nil
}

// Body returns the part of content after the frontmatter.
func Body(page model.Page, content string) string {
	if page.Offset < 0 || page.Offset > len(content) {
		return ""
	}
	return content[page.Offset:]
}

// split separates the frontmatter from the body. It returns the
// decoded fields and the byte offset of the body.
func split(content string) (map[string]any, int, error) {
	switch {
	case isDelimiter(firstLine(content), "---"):
		return splitYAML(content)
	case opensObject(firstLine(content)):
		return splitJSON(content)
	default:
		return nil, 0, nil
	}
}

func splitYAML(content string) (map[string]any, int, error) {
	start := lineEnd(content, 0)
	for position := start; position < len(content); {
		end := lineEnd(content, position)
		line := content[position:end]
		if isDelimiter(line, "---") || isDelimiter(line, "...") {
			fields := make(map[string]any)
			if err := yaml.Unmarshal([]byte(content[start:position]), &fields); err != nil {
				return nil, 0, fmt.Errorf("parsing YAML: %w", err)
			}
			return fields, end, nil
		}
		position = end
	}
	return nil, 0, fmt.Errorf("YAML frontmatter is not closed by a --- line")
}

func splitJSON(content string) (map[string]any, int, error) {
	end, err := objectEnd(content)
	if err != nil {
		return nil, 0, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(jsonc.ToJSON([]byte(content[:end])), &fields); err != nil {
		return nil, 0, fmt.Errorf("parsing JSON: %w", err)
	}
	// The body starts on the line after the closing brace.
	return fields, lineEnd(content, end), nil
}

// objectEnd returns the offset just past the brace closing the object
// that opens content. Strings and comments are skipped.
func objectEnd(content string) (int, error) {
	depth := 0
	for i := 0; i < len(content); i++ {
		switch c := content[i]; {
		case c == '"':
			for i++; i < len(content) && content[i] != '"'; i++ {
				if content[i] == '\\' {
					i++
				}
			}
		case c == '/' && strings.HasPrefix(content[i:], "//"):
			i = lineEnd(content, i) - 1
		case c == '/' && strings.HasPrefix(content[i:], "/*"):
			closing := strings.Index(content[i+2:], "*/")
			if closing < 0 {
				return 0, fmt.Errorf("JSON frontmatter has an unterminated comment")
			}
			i += closing + 3
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("JSON frontmatter is not closed")
}

// lineEnd returns the offset just past the newline ending the line at
// position, or len(content) for the last line.
func lineEnd(content string, position int) int {
	if newline := strings.IndexByte(content[position:], '\n'); newline >= 0 {
		return position + newline + 1
	}
	return len(content)
}

func firstLine(content string) string {
	return content[:lineEnd(content, 0)]
}

// opensObject reports whether line starts a JSON object rather than a
// template tag such as {{ title }} or {% include %}.
func opensObject(line string) bool {
	line = strings.TrimLeft(line, " \t")
	return strings.HasPrefix(line, "{") && !strings.HasPrefix(line, "{{") && !strings.HasPrefix(line, "{%")
}

func isDelimiter(line, delimiter string) bool {
	return strings.TrimRight(line, " \t\r\n") == delimiter
}
