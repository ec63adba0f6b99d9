package logger

import (
	"go.uber.org/zap"
)

// 包级 logger，Init 之前的调用安全但无输出
var lg = zap.NewNop()

// Init 初始化全局 logger；prod 环境输出 JSON，其余环境输出彩色控制台
func Init(env string) error {
	var (
		l   *zap.Logger
		err error
	)
	if env == "prod" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	lg = l
	return nil
}

// L 返回底层 *zap.Logger
func L() *zap.Logger { return lg }

func Debug(msg string, fields ...zap.Field) { lg.Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { lg.Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { lg.Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { lg.Error(msg, fields...) }

// Sync 刷新缓冲日志，进程退出前调用
func Sync() { _ = lg.Sync() }
