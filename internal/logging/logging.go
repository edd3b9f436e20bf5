// Package logging constructs the zap logger shared by every package in
// this module, adapted from the teacher's cmd/cmd.go newLogger and
// serv/internal/util/log.go NewLogger: JSON encoding in production,
// colored console encoding otherwise.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures logger construction.
type Options struct {
	// Level is one of debug, info, warn, error. Empty defaults to info.
	Level string

	// JSON selects the JSON encoder; otherwise a colored console
	// encoder is used.
	JSON bool
}

// New builds a *zap.Logger per opts.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, err
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if opts.JSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(os.Stderr)), level)
	return zap.New(core, zap.AddCaller()), nil
}

// NewNop returns a no-op logger, for tests and embedders that don't
// want logging wired up.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
