// =============================================================================
// 📦 RouteFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Engine:  DefaultEngineConfig(),
		Log:     DefaultLogConfig(),
		Metrics: DefaultMetricsConfig(),
	}
}

// DefaultEngineConfig 返回默认执行引擎配置
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CandidateTimeout: 120 * time.Second,
		DefaultMaxTokens: 4096,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:        "info",
		Format:       "json",
		EnableCaller: true,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Namespace: "routeflow",
	}
}
