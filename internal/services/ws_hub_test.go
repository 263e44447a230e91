package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"bloom-backend/internal/models"
	"bloom-backend/internal/repository/memory"

	"github.com/sideshow/apns2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	writeErr error
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) last(t *testing.T) WSMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.messages)
	var msg WSMessage
	require.NoError(t, json.Unmarshal(c.messages[len(c.messages)-1], &msg))
	return msg
}

func TestHubNotify(t *testing.T) {
	hub := NewWSHub()
	conn := &fakeConn{}
	hub.Register("u1", conn)

	require.NoError(t, hub.Notify(context.Background(), Notification{Kind: NotifyRequestReceived, UserID: "u1", RequestID: "r1"}))
	msg := conn.last(t)
	assert.Equal(t, string(NotifyRequestReceived), msg.Type)

	// offline users are skipped without error
	assert.NoError(t, hub.Notify(context.Background(), Notification{Kind: NotifyRequestReceived, UserID: "u2"}))
}

func TestHubRegisterReplacesConnection(t *testing.T) {
	hub := NewWSHub()
	first := &fakeConn{}
	second := &fakeConn{}

	hub.Register("u1", first)
	hub.Register("u1", second)
	assert.True(t, first.closed)

	// a stale unregister does not drop the new connection
	hub.Unregister("u1", first)
	assert.True(t, hub.IsOnline("u1"))

	hub.Unregister("u1", second)
	assert.False(t, hub.IsOnline("u1"))
	assert.True(t, second.closed)
}

func TestHubDropsBrokenConnection(t *testing.T) {
	hub := NewWSHub()
	hub.Register("u1", &fakeConn{writeErr: errors.New("broken pipe")})

	assert.Error(t, hub.SendToUser("u1", WSMessage{Type: "ping"}))
	assert.False(t, hub.IsOnline("u1"))
}

func TestHubPartnerStatus(t *testing.T) {
	hub := NewWSHub()
	conn := &fakeConn{}
	hub.Register("partner", conn)

	hub.NotifyPartnerStatus("partner", true)
	msg := conn.last(t)
	assert.Equal(t, "partner_status", msg.Type)
	assert.Equal(t, map[string]interface{}{"online": true}, msg.Data)

	hub.NotifyPartnerStatus("", false)
	hub.NotifyPartnerStatus("offline", false)
}

type fakeAPNs struct {
	mu        sync.Mutex
	pushed    []*apns2.Notification
	responses map[string]*apns2.Response
}

func (c *fakeAPNs) PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushed = append(c.pushed, n)
	if res, ok := c.responses[n.DeviceToken]; ok {
		return res, nil
	}
	return &apns2.Response{StatusCode: apns2.StatusSent}, nil
}

func TestPushNotifyDropsStaleTokens(t *testing.T) {
	store := memory.NewStore()
	client := &fakeAPNs{responses: map[string]*apns2.Response{
		"stale": {StatusCode: 410, Reason: apns2.ReasonUnregistered},
	}}
	push := NewPushService(store.PushTokens, client, "com.example.bloom")
	ctx := as("AAA")

	_, err := push.RegisterToken(ctx, "good", nil)
	require.NoError(t, err)
	_, err = push.RegisterToken(ctx, "stale", nil)
	require.NoError(t, err)

	require.NoError(t, push.Notify(context.Background(), Notification{Kind: NotifyPartnerAnswered, UserID: userID("AAA"), QuestionID: "q1"}))
	assert.Len(t, client.pushed, 2)
	assert.Equal(t, "com.example.bloom", client.pushed[0].Topic)

	tokens, err := store.PushTokens.ListByUser(context.Background(), userID("AAA"))
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "good", tokens[0].Token)
}

func TestPushWithoutClientIsNoop(t *testing.T) {
	push := NewPushService(memory.NewStore().PushTokens, nil, "topic")
	assert.NoError(t, push.Notify(context.Background(), Notification{Kind: NotifyRequestAccepted, UserID: "u1"}))
}

func TestNotifiersFanOut(t *testing.T) {
	first := &recordingNotifier{err: errors.New("first failed")}
	second := &recordingNotifier{}

	err := Notifiers{first, second}.Notify(context.Background(), Notification{UserID: "u1"})
	assert.EqualError(t, err, "first failed")
	assert.Len(t, second.Sent(), 1)
}

func TestRequestExpirerSweep(t *testing.T) {
	db := memory.New()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return now })
	store := db.Store()
	for _, h := range []string{"AAA", "BBB"} {
		require.NoError(t, store.Users.Create(context.Background(), &models.User{ID: userID(h), Email: h + "@example.com", Handle: h}))
	}

	req, err := store.CoupleRequests.Send(context.Background(), userID("AAA"), "BBB", nil)
	require.NoError(t, err)

	expirer := NewRequestExpirer(store.CoupleRequests, 24*time.Hour, time.Minute)
	expirer.now = func() time.Time { return now.Add(time.Hour) }
	assert.Equal(t, 0, expirer.Sweep(context.Background()))

	expirer.now = func() time.Time { return now.Add(25 * time.Hour) }
	assert.Equal(t, 1, expirer.Sweep(context.Background()))

	got, err := store.CoupleRequests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CoupleRequestExpired, got.Status)
}

func TestRequestExpirerRunStops(t *testing.T) {
	expirer := NewRequestExpirer(memory.NewStore().CoupleRequests, time.Hour, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		expirer.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expirer did not stop")
	}
}
