package util

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Logger fans messages out to its sinks. It lives in a context, see WithLogger.
type Logger struct {
	fs []LogFn
	sync.Mutex
}

type LogFn func(lvl Lvl, msg string)
type Lvl int

const (
	DEBUG Lvl = iota
	INFO
	WARN
	ERROR
)

type loggerKey struct{}

func Debugf(ctx context.Context, tpl string, args ...any) { Printf(ctx, DEBUG, tpl, args...) }
func Infof(ctx context.Context, tpl string, args ...any)  { Printf(ctx, INFO, tpl, args...) }
func Warnf(ctx context.Context, tpl string, args ...any)  { Printf(ctx, WARN, tpl, args...) }
func Errorf(ctx context.Context, tpl string, args ...any) { Printf(ctx, ERROR, tpl, args...) }

// WithLogger adds fs to the logger of ctx, creating one if ctx does not carry a logger yet.
func WithLogger(ctx context.Context, fs ...LogFn) context.Context {
	l, ok := GetLogger(ctx)
	if !ok {
		return context.WithValue(ctx, loggerKey{}, &Logger{fs: fs})
	}
	l.Lock()
	l.fs = append(l.fs, fs...)
	l.Unlock()
	return ctx
}

func GetLogger(ctx context.Context) (*Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	l, ok := ctx.Value(loggerKey{}).(*Logger)
	return l, ok
}

func WithLvl(minLvl Lvl, f LogFn) LogFn {
	return func(lvl Lvl, msg string) {
		if lvl >= minLvl {
			f(lvl, msg)
		}
	}
}

// Writer returns a sink writing one timestamped line per message to w.
func Writer(w io.Writer) LogFn {
	return func(lvl Lvl, msg string) {
		fmt.Fprintf(w, "%s %-5s %s\n", time.Now().Format("15:04:05.000"), lvl, msg)
	}
}

func Printf(ctx context.Context, lvl Lvl, tpl string, args ...any) {
	l, ok := GetLogger(ctx)
	if !ok {
		return
	}
	msg := fmt.Sprintf(tpl, args...)
	l.Lock()
	defer l.Unlock()
	for _, f := range l.fs {
		f(lvl, msg)
	}
}

func (l Lvl) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return fmt.Sprintf("LVL(%d)", int(l))
	}
}

func ParseLvl(l string) (Lvl, error) {
	switch l {
	case "ERROR", "error":
		return ERROR, nil
	case "WARN", "warn":
		return WARN, nil
	case "INFO", "info":
		return INFO, nil
	case "DEBUG", "debug", "":
		return DEBUG, nil
	}
	return DEBUG, fmt.Errorf("bad lvl: %q", l)
}
