package logging

import (
	"time"

	"github.com/microsoft/ApplicationInsights-Go/appinsights"
)

// Insights forwards map analytics and provider dependency calls to
// Application Insights. A nil *Insights is valid and drops everything.
type Insights struct {
	client appinsights.TelemetryClient
}

// NewInsights returns nil when instrumentationKey is empty.
func NewInsights(instrumentationKey string) *Insights {
	if instrumentationKey == "" {
		return nil
	}

	config := appinsights.NewTelemetryConfiguration(instrumentationKey)
	config.MaxBatchSize = 8192
	config.MaxBatchInterval = 2 * time.Second

	return &Insights{client: appinsights.NewTelemetryClientFromConfig(config)}
}

// TrackEvent records a named analytics event such as "location_selected".
func (i *Insights) TrackEvent(name string, properties map[string]string) {
	if i == nil || i.client == nil {
		return
	}
	event := appinsights.NewEventTelemetry(name)
	for k, v := range properties {
		event.Properties[k] = v
	}
	i.client.Track(event)
}

// TrackDependency records one call to the geocoding/directions provider.
func (i *Insights) TrackDependency(operation, target string, duration time.Duration, success bool) {
	if i == nil || i.client == nil {
		return
	}
	dependency := appinsights.NewRemoteDependencyTelemetry(operation, "HTTP", target, success)
	dependency.Duration = duration
	i.client.Track(dependency)
}

// TrackException records an error that was handled locally.
func (i *Insights) TrackException(err error) {
	if i == nil || i.client == nil || err == nil {
		return
	}
	i.client.Track(appinsights.NewExceptionTelemetry(err))
}

// Close flushes and closes the channel.
func (i *Insights) Close() {
	if i == nil || i.client == nil {
		return
	}
	i.client.Channel().Close()
}
