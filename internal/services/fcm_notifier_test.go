package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessage_Display(t *testing.T) {
	msg := BuildMessage("tok", Payload{Kind: PayloadDisplay, OwnerID: "o", Title: "Brass", Body: "hello"})

	assert.Equal(t, "tok", msg.Token)
	require.NotNil(t, msg.Notification)
	assert.Equal(t, "Brass", msg.Notification.Title)
	assert.Equal(t, "hello", msg.Notification.Body)
	assert.Nil(t, msg.Data)
	assert.Equal(t, "high", msg.Android.Priority)
	assert.Equal(t, "default", msg.Android.Notification.Sound)
	aps := msg.APNS.Payload.Aps
	assert.Equal(t, "default", aps.Sound)
	assert.True(t, aps.MutableContent)
	assert.True(t, aps.ContentAvailable)
	assert.Equal(t, map[string]string{
		"apns-priority":  "10",
		"apns-push-type": "alert",
	}, msg.APNS.Headers)
}

func TestBuildMessage_Data(t *testing.T) {
	msg := BuildMessage("tok", Payload{Kind: PayloadData, OwnerID: "o", Title: "Brass", Body: "hello"})

	assert.Nil(t, msg.Notification)
	assert.Equal(t, map[string]string{
		"ownerID":           "o",
		"title":             "Brass",
		"body":              "hello",
		"sound":             "default",
		"mutable_content":   "true",
		"content_available": "true",
	}, msg.Data)
	assert.True(t, msg.APNS.Payload.Aps.ContentAvailable)
	assert.False(t, msg.APNS.Payload.Aps.MutableContent)
	assert.Empty(t, msg.APNS.Payload.Aps.Sound)
	assert.Equal(t, map[string]string{
		"apns-priority":  "5",
		"apns-push-type": "background",
	}, msg.APNS.Headers)
}

func TestBuildMessage_HeadersNotShared(t *testing.T) {
	data := BuildMessage("a", Payload{Kind: PayloadData})
	display := BuildMessage("b", Payload{Kind: PayloadDisplay})

	assert.Equal(t, "5", data.APNS.Headers["apns-priority"])
	assert.Equal(t, "10", display.APNS.Headers["apns-priority"])
}

func TestFCMNotifier_WithoutClient(t *testing.T) {
	err := NewFCMNotifier(nil).Send(context.Background(), "tok", Payload{})
	assert.ErrorIs(t, err, ErrNotifierUnavailable)
}

func TestLogNotifier_Counts(t *testing.T) {
	n := NewLogNotifier(nil)
	require.NoError(t, n.Send(context.Background(), "a", Payload{Kind: PayloadDisplay}))
	require.NoError(t, n.Send(context.Background(), "b", Payload{Kind: PayloadData}))
	assert.Equal(t, 2, n.Sent())
}
