package logging

import (
	"os"

	"go.uber.org/zap/zapcore"
)

func stdoutSink(stderr bool) zapcore.WriteSyncer {
	if stderr {
		return zapcore.AddSync(os.Stderr)
	}
	return zapcore.AddSync(os.Stdout)
}
