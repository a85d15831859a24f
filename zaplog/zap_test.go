package zaplog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestBuildJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewZap().LogTo(&buf).Build()

	log.Info("hello", "key", "value")

	out := buf.String()
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"key":"value"`)
}

func TestBuildConsole(t *testing.T) {
	var buf bytes.Buffer
	log := NewZap().LogTo(&buf).Console().Build()

	log.Info("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestLevelGatesVerboseLogs(t *testing.T) {
	var buf bytes.Buffer
	log := NewZap().LogTo(&buf).Build()

	log.V(2).Info("too verbose")
	assert.Empty(t, buf.String())

	var verbose bytes.Buffer
	log = NewZap().LogTo(&verbose).WithLevel(zapcore.Level(-2)).Build()
	log.V(2).Info("now visible")
	assert.Contains(t, verbose.String(), "now visible")
}
