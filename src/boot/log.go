package boot

import (
	"DadBot/src/domain"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// initLog writes human readable lines to stdout and JSON lines to the log file.
func initLog(config domain.LogConfig, level zap.AtomicLevel) (*zap.SugaredLogger, *os.File, error) {
	if err := applyLogLevel(level, config.Level); err != nil {
		return nil, nil, err
	}

	err := os.MkdirAll(filepath.Dir(config.File), os.ModePerm)
	if err != nil {
		return nil, nil, err
	}

	logFile, err := os.OpenFile(config.File, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
	if err != nil {
		return nil, nil, err
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleConfig := encoderConfig
	consoleConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(logFile), level),
	)

	return zap.New(core).Sugar(), logFile, nil
}

func applyLogLevel(level zap.AtomicLevel, name string) error {
	if name == "" {
		name = "info"
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return err
	}
	level.SetLevel(lvl)
	return nil
}
