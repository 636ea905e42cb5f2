package middleware

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/aretw0/spindle/pkg/ports"
)

// Mask replaces the values of masked fields.
const Mask = "***"

type piiCodec struct {
	next     ports.Codec
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks the values of object fields
// whose name matches one of the patterns. It needs a JSON codec underneath.
// Masking is one-way: a restored State carries Mask in those fields.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.Codec) ports.Codec {
		return &piiCodec{next: next, patterns: patterns}
	}, nil
}

func (c *piiCodec) Marshal(v any) ([]byte, error) {
	data, err := c.next.Marshal(v)
	if err != nil {
		return nil, err
	}

	// The document is decoded afresh, so the caller's value is never touched.
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("pii masking needs JSON input: %w", err)
	}
	return json.Marshal(mask(doc, c.patterns))
}

func (c *piiCodec) Unmarshal(data []byte, v any) error {
	return c.next.Unmarshal(data, v)
}

func mask(v any, patterns []*regexp.Regexp) any {
	switch t := v.(type) {
	case map[string]any:
		for k, sub := range t {
			if matchAny(k, patterns) {
				t[k] = Mask
				continue
			}
			t[k] = mask(sub, patterns)
		}
	case []any:
		for i, sub := range t {
			t[i] = mask(sub, patterns)
		}
	}
	return v
}

func matchAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
