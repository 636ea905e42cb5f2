// Package persistence holds the byte encodings shared by the State stores.
package persistence

import (
	"encoding/json"

	"github.com/aretw0/spindle/pkg/persistence/middleware"
	"github.com/aretw0/spindle/pkg/ports"
)

// JSON is the default Codec of every store.
var JSON ports.Codec = jsonCodec{}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Chain wraps base with mws in order, so the last middleware is the outermost:
// it transforms the bytes last when saving and first when loading.
func Chain(base ports.Codec, mws ...middleware.Middleware) ports.Codec {
	c := base
	for _, mw := range mws {
		c = mw(c)
	}
	return c
}
