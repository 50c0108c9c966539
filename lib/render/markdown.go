// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"html"
	"net/url"
	"path"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"

	"github.com/bureau-foundation/ftl/lib/digest"
	"github.com/bureau-foundation/ftl/lib/model"
)

// codeBlockRenderer replaces goldmark's fenced code rendering with
// chroma output.
type codeBlockRenderer struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

func (c *codeBlockRenderer) RegisterFuncs(registerer renderer.NodeRendererFuncRegisterer) {
	registerer.Register(ast.KindFencedCodeBlock, c.renderFencedCodeBlock)
}

func (c *codeBlockRenderer) renderFencedCodeBlock(writer util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	block := node.(*ast.FencedCodeBlock)
	var code strings.Builder
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		code.Write(segment.Value(source))
	}

	language := string(block.Language(source))
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code.String())
	if err == nil {
		err = c.formatter.Format(writer, c.style, iterator)
	}
	if err != nil {
		// Unhighlighted output is still correct output.
		writer.WriteString("<pre><code>")
		writer.WriteString(html.EscapeString(code.String()))
		writer.WriteString("</code></pre>\n")
	}
	return ast.WalkSkipChildren, nil
}

// linkedFiles returns the revision files that links and images in
// document point at, in document order without repeats.
func linkedFiles(document ast.Node, source []byte, pagePath string, files map[string]model.InputFile) []model.InputFile {
	var linked []model.InputFile
	seen := make(map[digest.Hash]bool)
	ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		var destination string
		switch n := node.(type) {
		case *ast.Link:
			destination = string(n.Destination)
		case *ast.Image:
			destination = string(n.Destination)
		default:
			return ast.WalkContinue, nil
		}
		for _, candidate := range candidatePaths(pagePath, destination) {
			if file, ok := files[candidate]; ok {
				if !seen[file.ID] {
					seen[file.ID] = true
					linked = append(linked, file)
				}
				break
			}
		}
		return ast.WalkContinue, nil
	})
	return linked
}

// candidatePaths lists the source-relative paths a link destination
// may refer to, most specific first. External links have none.
func candidatePaths(pagePath, destination string) []string {
	parsed, err := url.Parse(destination)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" || parsed.Path == "" {
		return nil
	}
	target := parsed.Path

	if strings.HasPrefix(target, "/") {
		rooted := strings.TrimPrefix(path.Clean(target), "/")
		if rooted == "" {
			return nil
		}
		return []string{rooted, "assets/" + rooted, "content/" + rooted}
	}
	relative := path.Join(path.Dir(pagePath), target)
	if relative == "." || relative == ".." || strings.HasPrefix(relative, "../") {
		return nil
	}
	return []string{relative, "assets/" + relative}
}
