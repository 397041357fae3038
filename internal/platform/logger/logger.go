// Package logger owns the process zerolog logger and the request fields carried on context
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"nexuscalc/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the project-wide logging type
type Logger = zerolog.Logger

// Options configures the root logger
type Options struct {
	Level        string
	Format       string // "console" or "json"
	Service      string
	Component    string
	Writer       io.Writer // stdout when nil
	WithCaller   bool
	SampleEvery  int
	StaticFields map[string]string
}

// FromEnv reads LOG_* through the raw view, which never logs
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:       rc.Get("LEVEL", "debug"),
		Format:      strings.ToLower(rc.Get("FORMAT", "console")),
		Service:     rc.Get("SERVICE", "nexuscalc"),
		Component:   rc.Get("COMPONENT", ""),
		WithCaller:  rc.GetBool("CALLER", false),
		SampleEvery: rc.GetInt("SAMPLE_EVERY", 0),
	}
}

var (
	once sync.Once
	root atomic.Pointer[Logger]
)

// Init builds the root logger. Only the first call has any effect
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano
		l := build(opt)
		root.Store(&l)
	})
}

// Get returns the root logger, initializing it from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

func build(opt Options) Logger {
	w := opt.Writer
	if w == nil {
		w = os.Stdout
	}
	if opt.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	zc := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
	if bi, ok := debug.ReadBuildInfo(); ok {
		zc = zc.Str("go_version", bi.GoVersion)
	}
	if opt.Service != "" {
		zc = zc.Str("service", opt.Service)
	}
	if opt.Component != "" {
		zc = zc.Str("component", opt.Component)
	}
	for k, v := range opt.StaticFields {
		zc = zc.Str(k, v)
	}
	if opt.WithCaller {
		zc = zc.Caller()
	}

	l := zc.Logger()
	if opt.SampleEvery > 1 {
		l = l.Sample(&zerolog.BasicSampler{N: uint32(opt.SampleEvery)})
	}
	return l
}

// parseLevel maps a level name; unknown or blank is debug
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return zerolog.WarnLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" || lvl == zerolog.NoLevel {
		return zerolog.DebugLevel
	}
	return lvl
}

type ctxKey string

// fields carried from ctx onto every line, in output order
var ctxFields = []ctxKey{"request_id", "client_id", "run_id"}

func with(ctx context.Context, k ctxKey, v string) context.Context {
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, k, v)
}

// WithRequest tags ctx with a request id and the client being analyzed; blanks are skipped
func WithRequest(ctx context.Context, reqID, clientID string) context.Context {
	return with(with(ctx, "request_id", reqID), "client_id", clientID)
}

// WithRun tags ctx with an analysis run id
func WithRun(ctx context.Context, runID string) context.Context {
	return with(ctx, "run_id", runID)
}

// C returns a child of the root logger carrying the ctx fields
func C(ctx context.Context) *Logger { return From(ctx, Get()) }

// From is C for an arbitrary base logger
func From(ctx context.Context, base *Logger) *Logger {
	b := base.With()
	for _, k := range ctxFields {
		if s, ok := ctx.Value(k).(string); ok {
			b = b.Str(string(k), s)
		}
	}
	l := b.Logger()
	return &l
}

// Named returns a child of the root logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
