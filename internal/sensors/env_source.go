package sensors

import "github.com/relabs-tech/airq_monitor/internal/env"

// EnvSource is anything that can deliver environmental samples over time:
// the real BME680, a mock, maybe a replay source from file later.
type EnvSource interface {
	Next() (env.Sample, error)
}
