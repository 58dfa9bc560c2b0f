package temporal

import "go.uber.org/zap"

// LogAdapter satisfies the SDK's keyval logger interface on top of zap.
type LogAdapter struct {
	sugar *zap.SugaredLogger
}

func NewLogAdapter(logger *zap.Logger) *LogAdapter {
	return &LogAdapter{sugar: logger.Named("temporal").Sugar()}
}

func (l *LogAdapter) Debug(msg string, keyvals ...interface{}) { l.sugar.Debugw(msg, keyvals...) }
func (l *LogAdapter) Info(msg string, keyvals ...interface{})  { l.sugar.Infow(msg, keyvals...) }
func (l *LogAdapter) Warn(msg string, keyvals ...interface{})  { l.sugar.Warnw(msg, keyvals...) }
func (l *LogAdapter) Error(msg string, keyvals ...interface{}) { l.sugar.Errorw(msg, keyvals...) }
