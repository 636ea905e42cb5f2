package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3\n")

	out := buf.String()
	assert.Contains(t, out, bannerLines[1])
	assert.Contains(t, out, "v1.2.3")
	assert.NotContains(t, out, "\x1b[", "no colour when not writing to a terminal")
	assert.Equal(t, len(bannerLines)+3, strings.Count(out, "\n"))
}

func TestPrintBanner_NoVersion(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "")
	assert.Equal(t, len(bannerLines)+2, strings.Count(buf.String(), "\n"))
}
