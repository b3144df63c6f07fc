package gltfmodel

import "log"

// ConversionLog 转换日志接口
type ConversionLog interface {
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type stdLog struct{}

func (stdLog) Warnf(format string, args ...interface{}) {
	log.Printf("[WARN] "+format, args...)
}

func (stdLog) Errorf(format string, args ...interface{}) {
	log.Printf("[ERROR] "+format, args...)
}
