package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// NotificationClient sends merchant emails via the notification-service API
type NotificationClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewNotificationClient creates a new notification client
func NewNotificationClient(baseURL string) *NotificationClient {
	if baseURL == "" {
		baseURL = "http://notification-service.devtest.svc.cluster.local:8090"
	}

	return &NotificationClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendNotificationRequest represents the API request to notification-service
type SendNotificationRequest struct {
	Channel        string                 `json:"channel"`
	RecipientEmail string                 `json:"recipientEmail"`
	Subject        string                 `json:"subject"`
	TemplateName   string                 `json:"templateName,omitempty"`
	Variables      map[string]interface{} `json:"variables,omitempty"`
}

// SubscriptionChargedNotification sends the renewal receipt email
func (c *NotificationClient) SubscriptionChargedNotification(ctx context.Context, merchantID, email, planName string, amount float64, invoiceNumber string) error {
	if email == "" {
		log.Printf("[NotificationClient] No email for merchant %s, skipping notification", merchantID)
		return nil
	}

	req := SendNotificationRequest{
		Channel:        "EMAIL",
		RecipientEmail: email,
		Subject:        fmt.Sprintf("Subscription Renewed - Rs.%.2f", amount),
		TemplateName:   "subscription-merchant",
		Variables: map[string]interface{}{
			"merchantId":    merchantID,
			"planName":      planName,
			"amount":        fmt.Sprintf("%.2f", amount),
			"invoiceNumber": invoiceNumber,
			"chargedAt":     time.Now().Format("January 2, 2006 at 3:04 PM"),
		},
	}

	if err := c.send(ctx, merchantID, req); err != nil {
		log.Printf("[NotificationClient] Failed to send renewal email: %v", err)
		return err
	}

	log.Printf("[NotificationClient] Renewal notification sent to %s", email)
	return nil
}

// SubscriptionHaltedNotification warns a merchant that renewal attempts have
// stopped and the dashboard is locked.
func (c *NotificationClient) SubscriptionHaltedNotification(ctx context.Context, merchantID, email string) error {
	if email == "" {
		log.Printf("[NotificationClient] No email for merchant %s, skipping notification", merchantID)
		return nil
	}

	req := SendNotificationRequest{
		Channel:        "EMAIL",
		RecipientEmail: email,
		Subject:        "Subscription Payment Failed - Action Required",
		TemplateName:   "subscription-merchant",
		Variables: map[string]interface{}{
			"merchantId": merchantID,
			"status":     "halted",
		},
	}

	if err := c.send(ctx, merchantID, req); err != nil {
		log.Printf("[NotificationClient] Failed to send halted email: %v", err)
		return err
	}
	return nil
}

// RefundSettledNotification notifies the merchant a refund completed
func (c *NotificationClient) RefundSettledNotification(ctx context.Context, merchantID, email, refundID string, amount float64) error {
	if email == "" {
		return nil
	}

	req := SendNotificationRequest{
		Channel:        "EMAIL",
		RecipientEmail: email,
		Subject:        fmt.Sprintf("Refund Settled - Rs.%.2f", amount),
		TemplateName:   "refund-merchant",
		Variables: map[string]interface{}{
			"merchantId": merchantID,
			"refundId":   refundID,
			"amount":     fmt.Sprintf("%.2f", amount),
		},
	}

	if err := c.send(ctx, merchantID, req); err != nil {
		log.Printf("[NotificationClient] Failed to send refund settled email: %v", err)
		return err
	}
	return nil
}

func (c *NotificationClient) send(ctx context.Context, merchantID string, req SendNotificationRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal notification request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/notifications/send", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Merchant-ID", merchantID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call notification-service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification-service returned status %d", resp.StatusCode)
	}
	return nil
}
