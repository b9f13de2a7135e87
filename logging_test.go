package grass

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerLevels(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewLoggerTo(&out, &errOut, "grass", false)

	l.Debugf("hidden %d", 1)
	l.Infof("cells %d", 50)
	l.Warnf("slow")
	l.Errorf("upload failed")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[grass] INFO: cells 50")
	assert.Contains(t, errOut.String(), "[grass] WARN: slow")
	assert.Contains(t, errOut.String(), "[grass] ERROR: upload failed")

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("shown %d", 2)
	assert.Contains(t, out.String(), "DEBUG: shown 2")
}

func TestDefaultLoggerWithoutPrefix(t *testing.T) {
	var out bytes.Buffer
	l := NewLoggerTo(&out, &out, "", false)
	l.Infof("ready")
	assert.Contains(t, out.String(), " INFO: ready")
	assert.NotContains(t, out.String(), "[")
}

func TestAppLoggerFallsBackToNop(t *testing.T) {
	var app *App
	assert.NotNil(t, app.Logger())

	app = NewAppBuilder().Build()
	assert.False(t, app.Logger().DebugEnabled())

	app = NewAppBuilder().UseModule(LoggingModule{Prefix: "test", Debug: true}).Build()
	assert.True(t, app.Logger().DebugEnabled())
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"":        LevelInfo,
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.ErrorContains(t, err, `unknown log level "loud"`)
	assert.Equal(t, "Level(9)", Level(9).String())
}

func TestNamedLoggerSharesLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	root := NewLoggerTo(&out, &errOut, "grass", false)
	renderer := root.Named("renderer")

	renderer.Infof("rebuilt %d cells", 12)
	assert.Contains(t, out.String(), "[grass/renderer] INFO: rebuilt 12 cells")

	root.SetLevel(LevelWarn)
	renderer.Infof("dropped")
	renderer.Warnf("kept")
	assert.NotContains(t, out.String(), "dropped")
	assert.Contains(t, errOut.String(), "[grass/renderer] WARN: kept")

	renderer.SetDebug(false)
	assert.Equal(t, LevelWarn, root.Level())
	renderer.SetDebug(true)
	assert.True(t, root.DebugEnabled())

	assert.Equal(t, "scatter", NewLoggerTo(&out, &out, "", false).Named("scatter").prefix)
}

func TestLoggingModuleLevel(t *testing.T) {
	app := NewAppBuilder().UseModule(LoggingModule{Prefix: "test", Level: LevelError}).Build()
	l, ok := app.Logger().(*DefaultLogger)
	require.True(t, ok)
	assert.Equal(t, LevelError, l.Level())

	// Below info needs Debug.
	app = NewAppBuilder().UseModule(LoggingModule{Prefix: "test", Level: LevelDebug}).Build()
	assert.False(t, app.Logger().DebugEnabled())
}

func TestNamedLoggerFallsBack(t *testing.T) {
	app := NewAppBuilder().Build()
	assert.Equal(t, NewNopLogger(), namedLogger(app, "renderer"))

	app = NewAppBuilder().UseModule(LoggingModule{Prefix: "test"}).Build()
	named, ok := namedLogger(app, "renderer").(*DefaultLogger)
	require.True(t, ok)
	assert.Equal(t, "test/renderer", named.prefix)
}
