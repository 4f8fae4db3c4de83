package config

import "time"

// RetentionConfig controls data retention and the periodic cleanup sweep.
type RetentionConfig struct {
	// MessageRetentionDays is how many days a Message is kept before the
	// retention sweeper deletes it. Only message rows are deleted;
	// embedding and graph data are left in place.
	MessageRetentionDays int `yaml:"message_retention_days"`

	// SweepInterval is how often the retention sweep loop runs.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		MessageRetentionDays: 365,
		SweepInterval:        12 * time.Hour,
	}
}
