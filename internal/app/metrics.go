package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zapcore"

	"github.com/tokmz/qibot/pkg/logger"
)

// logEntries 按级别统计写出的日志条数
func logEntries(reg prometheus.Registerer, namespace string) (logger.Hook, error) {
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "log",
		Name:      "entries_total",
		Help:      "Log entries written, by level.",
	}, []string{"level"})
	if err := reg.Register(entries); err != nil {
		return nil, err
	}
	return func(e zapcore.Entry) error {
		entries.WithLabelValues(e.Level.String()).Inc()
		return nil
	}, nil
}
