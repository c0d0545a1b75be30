package obslog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildJSONAndSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Build(Options{Level: "info", Console: true, Format: "json", ConsoleTo: &buf})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("session_login")
	require.NoError(t, logger.Sync())
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"session_login"`)

	SetLevel("debug")
	defer SetLevel("info")
	assert.Equal(t, "debug", Level())
	logger.Debug("now_visible")
	assert.Contains(t, buf.String(), "now_visible")

	SetLevel("error")
	logger.Warn("suppressed")
	assert.False(t, strings.Contains(buf.String(), "suppressed"))
}

func TestBuildWithoutSinksIsNop(t *testing.T) {
	logger, err := Build(Options{})
	require.NoError(t, err)
	logger.Info("nothing")
}

func TestBuildFile(t *testing.T) {
	path := t.TempDir() + "/logs/out.log"
	logger, err := Build(Options{Level: "info", ToFile: true, FilePath: path, Format: "console"})
	require.NoError(t, err)
	logger.Info("queue_match")
	require.NoError(t, logger.Sync())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "warn", parseLevel("WARNING").String())
	assert.Equal(t, "info", parseLevel("bogus").String())
}
