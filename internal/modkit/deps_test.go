package modkit

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDeps_Logger_TagsComponent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := zerolog.New(&buf)
	d := Deps{Log: &base}

	d.Logger("collect").Info().Msg("ready")
	assert.Contains(t, buf.String(), `"component":"collect"`)

	buf.Reset()
	d.Logger("").Info().Msg("plain")
	assert.NotContains(t, buf.String(), "component")
}

func TestDeps_Logger_ZeroFallsBackToRoot(t *testing.T) {
	t.Parallel()

	var d Deps
	assert.NotNil(t, d.Logger("collect"))
}
