package logging

import (
	"slices"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// impl is a Logger over a zap.SugaredLogger. Its core tees every appender and drops entries
// below the logger's level.
type impl struct {
	name      string
	level     AtomicLevel
	inUTC     bool
	appenders []Appender

	sugar *zap.SugaredLogger
}

func newImpl(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	imp := &impl{
		name:      name,
		level:     NewAtomicLevelAt(level),
		inUTC:     inUTC,
		appenders: appenders,
	}
	imp.build()
	return imp
}

// build recreates the zap logger from the current appenders.
func (imp *impl) build() {
	cores := make([]zapcore.Core, 0, len(imp.appenders))
	for _, appender := range imp.appenders {
		cores = append(cores, asCore(appender))
	}

	// Skip the impl method between callers and the sugared logger.
	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if imp.inUTC {
		opts = append(opts, zap.WithClock(utcClock{}))
	}
	core := &levelCore{Core: zapcore.NewTee(cores...), level: imp.level}
	imp.sugar = zap.New(core, opts...).Named(imp.name).Sugar()
}

// AddAppender must not race with logging calls; the CLI adds its appenders before any work
// starts.
func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
	imp.build()
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}
	return newImpl(name, imp.level.Get(), imp.inUTC, slices.Clone(imp.appenders)...)
}

func (imp *impl) Sync() error {
	return imp.sugar.Sync()
}

func (imp *impl) Debug(args ...interface{}) { imp.sugar.Debug(args...) }

func (imp *impl) Debugf(template string, args ...interface{}) { imp.sugar.Debugf(template, args...) }

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.sugar.Debugw(msg, keysAndValues...)
}

func (imp *impl) Info(args ...interface{}) { imp.sugar.Info(args...) }

func (imp *impl) Infof(template string, args ...interface{}) { imp.sugar.Infof(template, args...) }

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.sugar.Infow(msg, keysAndValues...)
}

func (imp *impl) Warn(args ...interface{}) { imp.sugar.Warn(args...) }

func (imp *impl) Warnf(template string, args ...interface{}) { imp.sugar.Warnf(template, args...) }

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.sugar.Warnw(msg, keysAndValues...)
}

func (imp *impl) Error(args ...interface{}) { imp.sugar.Error(args...) }

func (imp *impl) Errorf(template string, args ...interface{}) { imp.sugar.Errorf(template, args...) }

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.sugar.Errorw(msg, keysAndValues...)
}

// levelCore gates a core on an AtomicLevel that can change after the logger is built.
type levelCore struct {
	zapcore.Core
	level AtomicLevel
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.level.Enabled(entry.Level) {
		return checked
	}
	return c.Core.Check(entry, checked)
}

// asCore returns appenders that already are zap cores (the test observer) unchanged and wraps
// the rest.
func asCore(appender Appender) zapcore.Core {
	if core, ok := appender.(zapcore.Core); ok {
		return core
	}
	return &appenderCore{Appender: appender}
}

// appenderCore adapts an Appender to zapcore.Core. Level filtering is left to levelCore.
type appenderCore struct {
	Appender
	fields []zapcore.Field
}

func (c *appenderCore) Enabled(zapcore.Level) bool {
	return true
}

func (c *appenderCore) With(fields []zapcore.Field) zapcore.Core {
	return &appenderCore{Appender: c.Appender, fields: append(slices.Clone(c.fields), fields...)}
}

func (c *appenderCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return checked.AddCore(entry, c)
}

func (c *appenderCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if len(c.fields) > 0 {
		fields = append(slices.Clone(c.fields), fields...)
	}
	return c.Appender.Write(entry, fields)
}

type utcClock struct{}

func (utcClock) Now() time.Time {
	return time.Now().UTC()
}

func (utcClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}
