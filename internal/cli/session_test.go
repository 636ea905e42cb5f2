package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/spindle/pkg/config"
)

func runSession(t *testing.T, s config.Settings, session, input string) string {
	t.Helper()
	out := &bytes.Buffer{}
	err := RunSession(context.Background(), Options{
		Settings:  s,
		SessionID: session,
		Quiet:     true,
		Stdin:     strings.NewReader(input),
		Stdout:    out,
	})
	require.NoError(t, err)
	return out.String()
}

func TestRunSession_Text(t *testing.T) {
	out := runSession(t, config.Defaults(), "", "inc\ninc 2\nfail\nquit\ninc\n")

	assert.Contains(t, out, `state: {"count":1,"ticks":0,"ticking":false}`)
	assert.Contains(t, out, `state: {"count":3,"ticks":0,"ticking":false}`)
	assert.Contains(t, out, "error: handler failed: failure requested")
	assert.NotContains(t, out, `"count":4`)
}

func TestRunSession_JSON(t *testing.T) {
	out := &bytes.Buffer{}
	err := RunSession(context.Background(), Options{
		Settings: config.Defaults(),
		JSON:     true,
		Stdin:    strings.NewReader("\"inc 10\"\n"),
		Stdout:   out,
	})
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"input":"inc 10","state":{"count":10,"ticks":0,"ticking":false},"events":[{"kind":"milestone","count":10}]}`,
		strings.TrimSpace(out.String()))
}

func TestRunSession_Banner(t *testing.T) {
	out := &bytes.Buffer{}
	err := RunSession(context.Background(), Options{
		Settings: config.Defaults(),
		Stdin:    strings.NewReader(""),
		Stdout:   out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), ">>> Strategy fifo.")
}

func TestRunSession_InvalidSettings(t *testing.T) {
	s := config.Defaults()
	s.Inputs.Strategy = "random"
	err := RunSession(context.Background(), Options{Settings: s, Stdin: strings.NewReader("")})
	assert.ErrorContains(t, err, "invalid settings")
}

func TestRunSession_RedisPersistence(t *testing.T) {
	mr := miniredis.RunT(t)
	s := config.Defaults()
	s.Redis.Addr = mr.Addr()

	runSession(t, s, "alice", "inc 5\nquit\n")
	assert.True(t, mr.Exists("spindle:state:alice"))

	out := runSession(t, s, "alice", ":state\ninc\n")
	assert.Contains(t, out, `state: {"count":5,"ticks":0,"ticking":false}`)
	assert.Contains(t, out, `state: {"count":6,"ticks":0,"ticking":false}`)

	out = runSession(t, s, "bob", ":state\n")
	assert.Contains(t, out, `state: {"count":0,"ticks":0,"ticking":false}`)
}

func TestRunSession_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	s := config.Defaults()
	s.Redis.Addr = addr
	err := RunSession(context.Background(), Options{
		Settings:  s,
		SessionID: "alice",
		Quiet:     true,
		Stdin:     strings.NewReader(""),
		Stdout:    &bytes.Buffer{},
	})
	assert.ErrorContains(t, err, "redis unavailable")
}

func TestRunSession_FilePersistence(t *testing.T) {
	s := config.Defaults()
	s.Store.Dir = t.TempDir()
	s.Store.EncryptionKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{3}, 32))

	runSession(t, s, "carol", "inc 7\n")

	data, err := os.ReadFile(filepath.Join(s.Store.Dir, "carol.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "__encrypted__")
	assert.NotContains(t, string(data), `"count"`)

	out := runSession(t, s, "carol", ":state\n")
	assert.Contains(t, out, `state: {"count":7,"ticks":0,"ticking":false}`)
}
