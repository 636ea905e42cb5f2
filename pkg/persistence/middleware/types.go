// Package middleware wraps a ports.Codec to transform saved States on their way
// to and from a store.
package middleware

import "github.com/aretw0/spindle/pkg/ports"

// Middleware allows wrapping a Codec to add behavior.
type Middleware func(ports.Codec) ports.Codec
