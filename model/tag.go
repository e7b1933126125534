package model

import (
	"strings"
)

// TagName is the struct tag key read by GetModel.
const TagName = "sqlchain"

// Tag represents a parsed sqlchain tag
type Tag struct {
	Column string
	Ignore bool
}

// ParseTag parses a tag such as `sqlchain:"column:user_name"` or `sqlchain:"-"`.
func ParseTag(tagStr string) *Tag {
	tag := &Tag{}
	tagStr = strings.TrimSpace(tagStr)
	if tagStr == "" {
		return tag
	}
	if tagStr == "-" {
		tag.Ignore = true
		return tag
	}

	// Support space, semicolon, comma as separators
	parts := strings.FieldsFunc(tagStr, func(r rune) bool {
		return r == ' ' || r == ';' || r == ','
	})
	for _, part := range parts {
		kv := strings.SplitN(part, ":", 2)
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		var val string
		if len(kv) > 1 {
			val = strings.TrimSpace(kv[1])
		}

		switch key {
		case "column":
			tag.Column = val
		case "-", "ignore":
			tag.Ignore = true
		}
	}
	return tag
}
