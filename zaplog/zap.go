// Package zaplog provides a builder-pattern constructor for creating a
// logr.Logger implementation using Zap with some commonly-good defaults.
// The result is suitable as the diagnostic sink of a tracereg.Registry.
package zaplog

import (
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	// Encoder is a symbolic link to zapcore.Encoder.
	Encoder = zapcore.Encoder
	// EncoderConfig is a symbolic link to zapcore.EncoderConfig.
	EncoderConfig = zapcore.EncoderConfig

	// EncoderCreator represents an Encoder constructor given a populated
	// EncoderConfig.
	EncoderCreator func(EncoderConfig) Encoder
)

// NewZap returns a new *Builder using the default configuration: the
// production encoder configuration, JSON output, os.Stdout.
func NewZap() *Builder {
	return &Builder{
		outW:           os.Stdout,
		encoderCfg:     zap.NewProductionEncoderConfig(),
		encoderCreator: zapcore.NewJSONEncoder,
	}
}

// Builder is a builder-pattern struct for building a logr.Logger using
// go.uber.org/zap.
type Builder struct {
	outW           io.Writer
	encoderCfg     EncoderConfig
	encoderCreator EncoderCreator
	level          zapcore.Level
	opts           []zap.Option
}

// LogTo specifies where to write logs. If you want to write to multiple
// destinations, use io.MultiWriter or preferably zapcore.NewMultiWriteSyncer.
// The writer is wrapped with zapcore.Lock, so it can be shared safely.
//
// Defaults to os.Stdout. A call to this function overwrites any previous value.
func (b *Builder) LogTo(w io.Writer) *Builder {
	b.outW = w
	return b
}

// WithEncoderConfig lets the user fine-tune how logs are encoded.
//
// Defaults to zap.NewProductionEncoderConfig().
// A call to this function overwrites any previous value.
func (b *Builder) WithEncoderConfig(cfg EncoderConfig) *Builder {
	b.encoderCfg = cfg
	return b
}

// Console switches from JSON to the human-readable console encoder with the
// development encoder configuration.
func (b *Builder) Console() *Builder {
	b.encoderCfg = zap.NewDevelopmentEncoderConfig()
	b.encoderCreator = zapcore.NewConsoleEncoder
	return b
}

// WithEncoderCreator swaps the encoder constructor, e.g. for
// zapcore.NewConsoleEncoder.
//
// Defaults to zapcore.NewJSONEncoder.
func (b *Builder) WithEncoderCreator(fn EncoderCreator) *Builder {
	b.encoderCreator = fn
	return b
}

// WithLevel sets the minimum enabled level. Negative zap levels map to
// logr V-levels, so WithLevel(-2) enables log.V(2).
//
// Defaults to zapcore.InfoLevel.
func (b *Builder) WithLevel(level zapcore.Level) *Builder {
	b.level = level
	return b
}

// WithZapOptions appends extra zap.Options applied when the logger is built.
func (b *Builder) WithZapOptions(opts ...zap.Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// Build builds the logr.Logger.
func (b *Builder) Build() logr.Logger {
	ws := zapcore.Lock(toWriteSyncer(b.outW))
	core := zapcore.NewCore(b.encoderCreator(b.encoderCfg), ws, zap.NewAtomicLevelAt(b.level))
	return zapr.NewLogger(zap.New(core, b.opts...))
}

func toWriteSyncer(w io.Writer) zapcore.WriteSyncer {
	if ws, ok := w.(zapcore.WriteSyncer); ok {
		return ws
	}
	return zapcore.AddSync(w)
}
