package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the JSON zap logger shared by the server and the CLI tools.
// Debug mode keeps JSON output but lowers the level to debug, which also
// turns on per-statement query logging.
func New(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
		cfg.Sampling = nil
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]interface{}{"service": "trainers"}
	return cfg.Build()
}
