package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Server struct {
		// Port the HTTP API listens on
		Port int `env:"SERVER_PORT" envDefault:"8080"`
	}

	// Database configuration
	Database struct {
		// Path to the SQLite database file
		Path string `env:"DATABASE_PATH" envDefault:"comptrend.db"`
	}

	// Upload configuration
	Upload struct {
		// Maximum accepted upload size in megabytes
		MaxSizeMB int64 `env:"UPLOAD_MAX_SIZE_MB" envDefault:"20"`
	}

	// Analysis configuration
	Analysis struct {
		// Number of trailing months used for suggested adjustment summaries
		RecentMonths int `env:"ANALYSIS_RECENT_MONTHS" envDefault:"12"`

		// Number of sample points per trendline chart series
		ChartPoints int `env:"ANALYSIS_CHART_POINTS" envDefault:"100"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Buffer size of the in-memory sale batch queue
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"100"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
