package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeDispatcher runs the notification dispatcher workers.
	ServiceModeDispatcher ServiceMode = "dispatcher"
	// ServiceModeReaper runs the job reaper for cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeDispatcher,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeDispatcher, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, dispatcher, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// DispatcherConfig contains notification dispatcher configuration.
type DispatcherConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"DISPATCHER_CONCURRENCY" envDefault:"2"`

	// JobLease is the duration to lease a notification job.
	JobLease time.Duration `env:"DISPATCHER_JOB_LEASE" envDefault:"30s"`

	// AlertTimeout bounds each outbound alert send.
	AlertTimeout time.Duration `env:"DISPATCHER_ALERT_TIMEOUT" envDefault:"5s"`

	// IdlePoll is the fallback poll interval when no wakeups arrive.
	IdlePoll time.Duration `env:"DISPATCHER_IDLE_POLL" envDefault:"15s"`
}

// Sanitize applies guardrails to dispatcher configuration values.
func (d *DispatcherConfig) Sanitize() {
	if d.Concurrency < 1 {
		d.Concurrency = 1
	}
	if d.JobLease < 5*time.Second {
		d.JobLease = 5 * time.Second
	}
	if d.AlertTimeout <= 0 {
		d.AlertTimeout = 5 * time.Second
	}
	if d.IdlePoll < time.Second {
		d.IdlePoll = time.Second
	}
}

// ReaperConfig contains job reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// CompletedMaxAge is the maximum age for completed jobs before deletion.
	CompletedMaxAge time.Duration `env:"REAPER_COMPLETED_MAX_AGE" envDefault:"168h"` // 7 days

	// DeadMaxAge is the maximum age for dead jobs before deletion.
	DeadMaxAge time.Duration `env:"REAPER_DEAD_MAX_AGE" envDefault:"720h"` // 30 days

	// DeadReportLimit is the maximum number of dead jobs surfaced per report.
	DeadReportLimit int `env:"REAPER_DEAD_REPORT_LIMIT" envDefault:"50"`

	// BatchSize is the maximum number of rows to delete per operation.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.CompletedMaxAge < 1*time.Hour {
		r.CompletedMaxAge = 1 * time.Hour
	}
	if r.DeadMaxAge < 1*time.Hour {
		r.DeadMaxAge = 1 * time.Hour
	}
	if r.DeadReportLimit < 1 {
		r.DeadReportLimit = 1
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}

// AlertConfig contains outbound alert gateway configuration.
type AlertConfig struct {
	// WebhookURL is the email-gateway webhook endpoint. Empty disables
	// outbound alerts; in-app notifications are still recorded.
	WebhookURL string `env:"ALERT_WEBHOOK_URL" envDefault:""`

	// AuthToken is the bearer token for the gateway, if any.
	AuthToken string `env:"ALERT_AUTH_TOKEN" envDefault:""`

	// Sender is the sender identity reported to the gateway.
	Sender string `env:"ALERT_SENDER" envDefault:"miniblog"`

	// RetryLimit is the number of additional send attempts per alert.
	RetryLimit int `env:"ALERT_RETRY_LIMIT" envDefault:"1"`
}
