package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormatStr is the timestamp layout used by stdout/test
// appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000-0700"

// Appender is anything that can receive a formatted log entry. A
// *zap.SugaredLogger is never used directly as the output path; every
// logger path, including stdout, funnels through an Appender so that test
// observation and stdout printing share the same entry formatting.
type Appender interface {
	Write(entry zapcore.Entry, fields []zapcore.Field) error
	Sync() error
}

// NewZapLoggerConfig is an alias of NewLoggerConfig kept for call sites that
// construct a zap.Config specifically to back impl.AsZap.
func NewZapLoggerConfig() zap.Config {
	return NewLoggerConfig()
}

type stdoutAppender struct {
	encoder zapcore.Encoder
}

// NewStdoutAppender returns an Appender that writes console-formatted
// entries to stdout using the package's default encoder config.
func NewStdoutAppender() Appender {
	return &stdoutAppender{encoder: zapcore.NewConsoleEncoder(consoleEncoderConfig())}
}

func (s *stdoutAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := s.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()
	_, err = os.Stdout.Write(buf.Bytes())
	return err
}

func (s *stdoutAppender) Sync() error {
	return nil
}

type stdoutTestAppender struct {
	stdoutAppender
}

// NewStdoutTestAppender is like NewStdoutAppender but intended for use
// alongside an observer.ObservedLogs core in test loggers.
func NewStdoutTestAppender() Appender {
	return &stdoutTestAppender{stdoutAppender{encoder: zapcore.NewConsoleEncoder(consoleEncoderConfig())}}
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := NewLoggerConfig()
	return cfg.EncoderConfig
}

// callerToString renders a zapcore.EntryCaller as "file:line", matching
// zapcore.ShortCallerEncoder's format without requiring a full Encoder.
func callerToString(caller *zapcore.EntryCaller) string {
	return fmt.Sprintf("%s:%d", shortPath(caller.File), caller.Line)
}

// shortPath keeps one directory of context, matching
// zapcore.ShortCallerEncoder's "dir/file.go" style.
func shortPath(file string) string {
	slash := strings.LastIndexByte(file, '/')
	if slash < 0 {
		return file
	}
	prevSlash := strings.LastIndexByte(file[:slash], '/')
	if prevSlash < 0 {
		return file
	}
	return file[prevSlash+1:]
}
