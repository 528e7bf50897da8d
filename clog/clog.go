// Package clog wraps zap.Logger so that fields attached via With() stick to
// every subsequent log call. New Relic's zap integration only forwards
// attributes present at call time, so "pkg", "method" and "run_id" have to be
// carried by the wrapper rather than by the zap core.
package clog

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

type ICustomLog interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Fatal(msg string, fields ...zap.Field)
	With(fields ...zap.Field) ICustomLog
}

type CustomLog struct {
	fields    map[string]zap.Field
	fieldsMtx *sync.Mutex
	logger    *zap.Logger
}

// New returns a logger that prepends fields to every entry. A nil zap logger
// yields a no-op logger.
func New(logger *zap.Logger, fields ...zap.Field) ICustomLog {
	if logger == nil {
		logger = zap.NewNop()
	}

	mtx := &sync.Mutex{}

	return &CustomLog{
		logger:    logger,
		fieldsMtx: mtx,
		fields:    updateMap(mtx, make(map[string]zap.Field), fields...),
	}
}

func (c *CustomLog) Debug(msg string, fields ...zap.Field) {
	c.logger.Debug(msg, append(mapToFields(c.fieldsMtx, c.fields), fields...)...)
}

func (c *CustomLog) Info(msg string, fields ...zap.Field) {
	c.logger.Info(msg, append(mapToFields(c.fieldsMtx, c.fields), fields...)...)
}

func (c *CustomLog) Warn(msg string, fields ...zap.Field) {
	c.logger.Warn(msg, append(mapToFields(c.fieldsMtx, c.fields), fields...)...)
}

func (c *CustomLog) Error(msg string, fields ...zap.Field) {
	c.logger.Error(msg, append(mapToFields(c.fieldsMtx, c.fields), fields...)...)
}

func (c *CustomLog) Fatal(msg string, fields ...zap.Field) {
	c.logger.Fatal(msg, append(mapToFields(c.fieldsMtx, c.fields), fields...)...)
}

// With returns a copy of the logger; later fields replace earlier fields that
// share the same key.
func (c *CustomLog) With(fields ...zap.Field) ICustomLog {
	newFields := make(map[string]zap.Field)

	c.fieldsMtx.Lock()
	for k, v := range c.fields {
		newFields[k] = v
	}
	c.fieldsMtx.Unlock()

	return &CustomLog{
		logger:    c.logger,
		fieldsMtx: &sync.Mutex{},
		fields:    updateMap(nil, newFields, fields...),
	}
}

func updateMap(mtx *sync.Mutex, m map[string]zap.Field, f ...zap.Field) map[string]zap.Field {
	if mtx != nil {
		mtx.Lock()
		defer mtx.Unlock()
	}

	for _, field := range f {
		m[field.Key] = field
	}

	return m
}

// mapToFields returns fields sorted by key so console output is stable.
func mapToFields(mtx *sync.Mutex, m map[string]zap.Field) []zap.Field {
	if mtx != nil {
		mtx.Lock()
		defer mtx.Unlock()
	}

	fields := make([]zap.Field, 0, len(m))

	for _, field := range m {
		fields = append(fields, field)
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })

	return fields
}
