package storage

import "time"

// Metrics 收集存储引擎的操作指标。未注入时使用 noop 实现。
type Metrics interface {
	ObserveStore(bytes int64, duration time.Duration, err error)
	ObserveOperation(op string, err error)
	RenameRetry()
}

type noopMetrics struct{}

func (noopMetrics) ObserveStore(int64, time.Duration, error) {}
func (noopMetrics) ObserveOperation(string, error)           {}
func (noopMetrics) RenameRetry()                             {}
