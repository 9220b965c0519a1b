package notification

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"

	"ridelink/database/repository"
	"ridelink/utils"
)

// Notifier is the outbound push port. Delivery is best effort everywhere it
// is consumed: callers log failures and move on, core state never depends on
// a push landing.
type Notifier interface {
	NotifyProvider(ctx context.Context, providerID, event string, payload map[string]string) error
	NotifyCustomer(ctx context.Context, customerID, event string, payload map[string]string) error
}

// FCMNotifier sends pushes through Firebase Cloud Messaging.
type FCMNotifier struct {
	ProviderRepo repository.ProviderRepository
	// CustomerToken resolves a customer id to an FCM token via the accounts
	// system. Nil when customer push is not wired in this deployment.
	CustomerToken func(ctx context.Context, customerID string) (string, error)
}

func NewFCMNotifier(providers repository.ProviderRepository) *FCMNotifier {
	return &FCMNotifier{ProviderRepo: providers}
}

func (n *FCMNotifier) NotifyProvider(ctx context.Context, providerID, event string, payload map[string]string) error {
	p, err := n.ProviderRepo.GetByID(ctx, providerID)
	if err != nil {
		return fmt.Errorf("NotifyProvider: could not find provider %s: %w", providerID, err)
	}
	if p.FCMToken == "" {
		return fmt.Errorf("NotifyProvider: provider %s has no FCM token", providerID)
	}
	return n.send(ctx, p.FCMToken, event, payload, true)
}

func (n *FCMNotifier) NotifyCustomer(ctx context.Context, customerID, event string, payload map[string]string) error {
	if n.CustomerToken == nil {
		zap.L().Debug("customer push not configured", zap.String("customer_id", customerID))
		return nil
	}
	token, err := n.CustomerToken(ctx, customerID)
	if err != nil {
		return fmt.Errorf("NotifyCustomer: could not resolve token for %s: %w", customerID, err)
	}
	if token == "" {
		return fmt.Errorf("NotifyCustomer: customer %s has no FCM token", customerID)
	}
	return n.send(ctx, token, event, payload, false)
}

func (n *FCMNotifier) send(ctx context.Context, token, event string, payload map[string]string, highPriority bool) error {
	if payload == nil {
		payload = map[string]string{}
	}
	payload["event"] = event

	msg := &messaging.Message{
		Token: token,
		Data:  payload,
	}
	if highPriority {
		msg.Android = &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "dispatch",
				Sound:     "default",
			},
		}
		msg.APNS = &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
		}
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send FCM message: %w", err)
	}
	return nil
}
