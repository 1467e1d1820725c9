package main

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the CLI logger. Logs go to w and, when LogFile is set,
// to a rotating file as well. The returned func closes the file sink and
// must be called after the final Sync.
func newLogger(s Settings, w io.Writer) (*zap.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if s.LogDevelopment {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	sink := zapcore.AddSync(w)
	closeSink := func() error { return nil }
	if s.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   s.LogFile,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.AddSync(file))
		closeSink = file.Close
	}

	core := zapcore.NewCore(encoder, sink, level)
	if s.LogDevelopment {
		return zap.New(core, zap.AddCaller(), zap.Development()), closeSink, nil
	}
	return zap.New(core), closeSink, nil
}
