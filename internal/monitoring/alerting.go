package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/openfleet/fleetmeter/internal/resilience"
)

// AlertSeverity represents the severity level of an alert
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus represents the status of an alert
type AlertStatus string

const (
	StatusActive   AlertStatus = "active"
	StatusResolved AlertStatus = "resolved"
)

// Alert represents a driver risk alert. One alert exists per driver; it
// fires when the driver's computed risk crosses the threshold and resolves
// when a later analysis drops back below it.
type Alert struct {
	ID         string        `json:"id"`
	DriverID   string        `json:"driver_id"`
	DriverName string        `json:"driver_name,omitempty"`
	CompanyID  string        `json:"company_id"`
	Severity   AlertSeverity `json:"severity"`
	Status     AlertStatus   `json:"status"`
	Score      int           `json:"score"`
	RiskLevel  string        `json:"risk_level"`
	Message    string        `json:"message"`
	CreatedAt  time.Time     `json:"created_at"`
	FiredAt    time.Time     `json:"fired_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

// AlertNotifier defines the interface for sending alert notifications
type AlertNotifier interface {
	SendAlert(ctx context.Context, alert *Alert) error
	ResolveAlert(ctx context.Context, alert *Alert) error
}

// WebhookNotifier POSTs alerts as JSON to a configured endpoint. Transient
// delivery failures are retried with backoff.
type WebhookNotifier struct {
	URL    string
	client *http.Client
	retry  resilience.RetryConfig
}

// NewWebhookNotifier creates a webhook notifier
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		URL:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  resilience.DefaultRetryConfig(),
	}
}

type webhookPayload struct {
	Event string `json:"event"`
	Alert *Alert `json:"alert"`
}

func (w *WebhookNotifier) post(ctx context.Context, event string, alert *Alert) error {
	body, err := json.Marshal(webhookPayload{Event: event, Alert: alert})
	if err != nil {
		return fmt.Errorf("failed to marshal alert payload: %w", err)
	}

	return resilience.Do(ctx, w.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
		if err != nil {
			return resilience.Permanent(fmt.Errorf("failed to build webhook request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook delivery failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			err := fmt.Errorf("webhook returned status %d", resp.StatusCode)
			if !resilience.RetryableStatus(resp.StatusCode) {
				return resilience.Permanent(err)
			}
			return err
		}
		return nil
	})
}

// SendAlert delivers a fired alert to the webhook
func (w *WebhookNotifier) SendAlert(ctx context.Context, alert *Alert) error {
	return w.post(ctx, "alert.fired", alert)
}

// ResolveAlert delivers a resolution to the webhook
func (w *WebhookNotifier) ResolveAlert(ctx context.Context, alert *Alert) error {
	return w.post(ctx, "alert.resolved", alert)
}

// AlertManager tracks per-driver risk alerts and fans out notifications.
type AlertManager struct {
	mu                sync.RWMutex
	alerts            map[string]*Alert
	notifiers         []AlertNotifier
	logger            *Logger
	criticalThreshold int
}

// NewAlertManager creates a new alert manager. Drivers scoring at or above
// criticalThreshold fire a critical alert.
func NewAlertManager(logger *Logger, criticalThreshold int) *AlertManager {
	if criticalThreshold <= 0 {
		criticalThreshold = 80
	}
	return &AlertManager{
		alerts:            make(map[string]*Alert),
		logger:            logger,
		criticalThreshold: criticalThreshold,
	}
}

// AddNotifier adds a notifier
func (am *AlertManager) AddNotifier(notifier AlertNotifier) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.notifiers = append(am.notifiers, notifier)
}

// EvaluateDriver updates the alert state for one driver after a risk
// analysis. Crossing the threshold fires; dropping below it resolves.
func (am *AlertManager) EvaluateDriver(ctx context.Context, companyID, driverID, driverName string, score int, riskLevel string) {
	am.mu.Lock()

	alertKey := fmt.Sprintf("%s:%s", companyID, driverID)
	alert, exists := am.alerts[alertKey]

	if score >= am.criticalThreshold {
		if !exists || alert.Status != StatusActive {
			now := time.Now()
			alert = &Alert{
				ID:         alertKey,
				DriverID:   driverID,
				DriverName: driverName,
				CompanyID:  companyID,
				Severity:   SeverityCritical,
				Status:     StatusActive,
				Score:      score,
				RiskLevel:  riskLevel,
				Message:    fmt.Sprintf("Driver %s reached critical risk score %d", driverID, score),
				CreatedAt:  now,
				FiredAt:    now,
			}
			am.alerts[alertKey] = alert
			am.mu.Unlock()
			am.fireAlert(ctx, alert)
			return
		}
		// Already active: keep the latest score visible.
		alert.Score = score
		alert.RiskLevel = riskLevel
		am.mu.Unlock()
		return
	}

	if exists && alert.Status == StatusActive {
		now := time.Now()
		alert.Status = StatusResolved
		alert.ResolvedAt = &now
		alert.Score = score
		alert.RiskLevel = riskLevel
		am.mu.Unlock()
		am.resolveAlert(ctx, alert)
		return
	}

	am.mu.Unlock()
}

// fireAlert fires an alert to all notifiers
func (am *AlertManager) fireAlert(ctx context.Context, alert *Alert) {
	am.logger.SystemLogger("alert_fired", fmt.Sprintf("Driver %s critical at score %d", alert.DriverID, alert.Score))

	am.mu.RLock()
	notifiers := make([]AlertNotifier, len(am.notifiers))
	copy(notifiers, am.notifiers)
	am.mu.RUnlock()

	for _, notifier := range notifiers {
		go func(n AlertNotifier) {
			if err := n.SendAlert(ctx, alert); err != nil {
				am.logger.SystemLogger("alert_notification_failed", fmt.Sprintf("Failed to send alert %s: %v", alert.ID, err))
			}
		}(notifier)
	}
}

// resolveAlert resolves an alert with all notifiers
func (am *AlertManager) resolveAlert(ctx context.Context, alert *Alert) {
	am.logger.SystemLogger("alert_resolved", fmt.Sprintf("Driver %s back below threshold at score %d", alert.DriverID, alert.Score))

	am.mu.RLock()
	notifiers := make([]AlertNotifier, len(am.notifiers))
	copy(notifiers, am.notifiers)
	am.mu.RUnlock()

	for _, notifier := range notifiers {
		go func(n AlertNotifier) {
			if err := n.ResolveAlert(ctx, alert); err != nil {
				am.logger.SystemLogger("alert_resolution_failed", fmt.Sprintf("Failed to resolve alert %s: %v", alert.ID, err))
			}
		}(notifier)
	}
}

// GetAlerts returns all current alerts
func (am *AlertManager) GetAlerts() map[string]*Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	alerts := make(map[string]*Alert, len(am.alerts))
	for k, v := range am.alerts {
		alertCopy := *v
		alerts[k] = &alertCopy
	}
	return alerts
}

// GetActiveAlerts returns only active alerts
func (am *AlertManager) GetActiveAlerts() map[string]*Alert {
	am.mu.RLock()
	defer am.mu.RUnlock()

	activeAlerts := make(map[string]*Alert)
	for k, v := range am.alerts {
		if v.Status == StatusActive {
			alertCopy := *v
			activeAlerts[k] = &alertCopy
		}
	}
	return activeAlerts
}
