package fetcher

import (
	"fmt"
	"time"
)

// SummaryConfig controls the optional summary enrichment of notifications.
type SummaryConfig struct {
	// Enabled turns enrichment on. When false no item page is fetched.
	Enabled bool

	// Timeout bounds one page fetch.
	Timeout time.Duration

	// MaxBodySize is the largest page accepted, in bytes.
	MaxBodySize int64

	// MaxRedirects is the number of redirects followed.
	MaxRedirects int

	// MaxLength caps the summary in characters before the notifier applies
	// its own description limit.
	MaxLength int

	// DenyPrivateIPs rejects links that resolve to loopback, private or
	// link-local addresses. Item links come from third-party HTML.
	DenyPrivateIPs bool
}

// DefaultConfig returns the summary settings used when nothing is configured.
func DefaultConfig() SummaryConfig {
	return SummaryConfig{
		Enabled:        false,
		Timeout:        10 * time.Second,
		MaxBodySize:    5 * 1024 * 1024, // 5MB
		MaxRedirects:   5,
		MaxLength:      2000,
		DenyPrivateIPs: true,
	}
}

// Validate checks if the configuration values are valid and safe.
func (c *SummaryConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxBodySize < 1024 || c.MaxBodySize > 100*1024*1024 {
		return fmt.Errorf("max body size must be between 1KB and 100MB, got %d", c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	if c.MaxLength <= 0 {
		return fmt.Errorf("max length must be positive, got %d", c.MaxLength)
	}
	return nil
}
