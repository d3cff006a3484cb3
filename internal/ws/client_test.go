package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_AuthenticatedFlagConcurrent(t *testing.T) {
	c := NewClient("c1", nil, nil)
	require.False(t, c.Authenticated())

	// The auth timeout timer polls the flag while the hub goroutine
	// flips it; both sides must be race-free.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.SetAuthenticated(i%2 == 0)
		}
		c.SetAuthenticated(true)
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = c.Authenticated()
		}
	}()
	wg.Wait()

	assert.True(t, c.Authenticated())
}

func TestClient_SendMessage(t *testing.T) {
	c := NewClient("c1", nil, nil)
	c.SendMessage(NewErrorMessage("nope"))

	select {
	case data := <-c.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, TypeError, msg.Type)

		var em ErrorMessage
		require.NoError(t, json.Unmarshal(msg.Data, &em))
		assert.Equal(t, "nope", em.Message)
	default:
		t.Fatal("expected a queued message")
	}
}

func TestClient_SendMessageDropsWhenBufferFull(t *testing.T) {
	c := NewClient("c1", nil, nil)
	for i := 0; i < cap(c.Send)+10; i++ {
		c.SendMessage(NewErrorMessage("overflow"))
	}
	assert.Equal(t, cap(c.Send), len(c.Send), "overflow must drop, not block")
}

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(TypeNotification, map[string]string{"id": "n1"})
	require.NoError(t, err)
	assert.Equal(t, TypeNotification, msg.Type)
	assert.JSONEq(t, `{"id":"n1"}`, string(msg.Data))

	_, err = NewMessage(TypeNotification, func() {})
	assert.Error(t, err)
}
