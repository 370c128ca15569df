package services

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// FCMNotifier sends pushes with Firebase Cloud Messaging.
type FCMNotifier struct {
	client *messaging.Client
}

func NewFCMNotifier(client *messaging.Client) *FCMNotifier {
	return &FCMNotifier{client: client}
}

func (n *FCMNotifier) Send(ctx context.Context, token string, p Payload) error {
	if n.client == nil {
		return ErrNotifierUnavailable
	}
	if _, err := n.client.Send(ctx, BuildMessage(token, p)); err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

// BuildMessage maps a Payload onto an FCM message. Display pushes go out as
// high-priority alerts. Data pushes are APNs background pushes, which Apple
// only accepts at priority 5.
func BuildMessage(token string, p Payload) *messaging.Message {
	msg := &messaging.Message{
		Token: token,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:            "default",
					MutableContent:   true,
					ContentAvailable: true,
				},
			},
		},
	}

	switch p.Kind {
	case PayloadData:
		msg.Data = p.Data()
		msg.APNS.Headers["apns-priority"] = "5"
		msg.APNS.Headers["apns-push-type"] = "background"
		msg.APNS.Payload.Aps.Sound = ""
		msg.APNS.Payload.Aps.MutableContent = false
	default:
		msg.Notification = &messaging.Notification{
			Title: p.Title,
			Body:  p.Body,
		}
		msg.Android.Notification = &messaging.AndroidNotification{
			Sound: "default",
		}
	}
	return msg
}
