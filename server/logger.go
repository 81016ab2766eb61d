package server

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"mazeworld/config"
)

// Log 全局 SugaredLogger；InitLogger 之前为 no-op，测试中可直接使用
var Log = zap.NewNop().Sugar()

// InitLogger 按配置初始化 zap：lumberjack 滚动文件，可选 JSON 格式与 stderr 输出
func InitLogger(cfg config.LogConfig) error {
	level := zapcore.DebugLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays, // days
	})
	if cfg.Console {
		sink = zapcore.NewMultiWriteSyncer(sink, zapcore.Lock(os.Stderr))
	}

	logger := zap.New(zapcore.NewCore(encoder, sink, level), zap.AddCaller()).Named("mazeworld")
	Log = logger.Sugar()
	return nil
}

// SyncLogger 退出前刷新缓冲
func SyncLogger() {
	_ = Log.Sync()
}
