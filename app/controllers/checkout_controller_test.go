package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/ShopFox/internal/pkg/paymentwatch"
)

// TestNewPushChannelSelection tests that the subscriber and the webhook
// publisher always come off the same transport, so a published event can
// reach the watchers attached to it.
func TestNewPushChannelSelection(t *testing.T) {
	t.Run("redis serves both roles", func(t *testing.T) {
		t.Setenv("PUSH_TRANSPORT", "redis")
		ch, pub := newPushChannel(nil)
		assert.IsType(t, &paymentwatch.RedisChannel{}, ch)
		assert.Equal(t, ch, pub)
	})

	t.Run("unknown transport disables push entirely", func(t *testing.T) {
		t.Setenv("PUSH_TRANSPORT", "off")
		ch, pub := newPushChannel(nil)
		assert.Nil(t, ch)
		assert.Nil(t, pub)
	})

	t.Run("unreachable nats disables push entirely", func(t *testing.T) {
		t.Setenv("PUSH_TRANSPORT", "nats")
		t.Setenv("NATS_URL", "nats://127.0.0.1:1")
		ch, pub := newPushChannel(nil)
		assert.Nil(t, ch)
		assert.Nil(t, pub)
	})
}
