// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package frontmatter

import (
	"fmt"

	"github.com/bureau-foundation/ftl/lib/model"
)

// apply moves recognised keys into page and the rest into its
// attributes.
func apply(page *model.Page, fields map[string]any) error {
	var err error
	for key, value := range fields {
		switch key {
		case "template":
			page.Template, err = asString(key, value)
		case "title":
			page.Title, err = asString(key, value)
		case "draft":
			page.Draft, err = asBool(key, value)
		case "dynamic":
			page.Dynamic, err = asBool(key, value)
		case "aliases":
			page.Aliases, err = asStrings(key, value)
		case "tags":
			page.Tags, err = asStrings(key, value)
		default:
			if page.Attributes == nil {
				page.Attributes = make(map[string]any)
			}
			page.Attributes[key] = value
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func asString(key string, value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%s must be a string, not %T", key, value)
	}
}

func asBool(key string, value any) (bool, error) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("%s must be true or false, not %T", key, value)
	}
}

// asStrings accepts a list of strings or a single string.
func asStrings(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []any:
		values := make([]string, 0, len(v))
		for i, element := range v {
			text, ok := element.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string, not %T", key, i, element)
			}
			values = append(values, text)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("%s must be a list of strings, not %T", key, value)
	}
}
