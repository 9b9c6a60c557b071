package main

import (
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/fern/config"
)

// newLogger backs ectologger with zap. The returned func flushes buffered entries.
func newLogger(cfg config.LogConfig, opts ...zap.Option) (ectologger.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid log level %q", cfg.Level)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Pretty {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	base, err := zcfg.Build(opts...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to build zap logger")
	}
	base = base.Named("fern")

	return zapadapter.NewZapEctoLogger(base, nil), base.Sync, nil
}
