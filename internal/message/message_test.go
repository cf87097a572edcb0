package message

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	msg := New("system.status.request", nil)
	assert.Equal(t, "system.status.request", msg.Type)
	assert.Nil(t, msg.Data)
	assert.Equal(t, SenderSystem, msg.Sender)
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, New("a.b", nil).Validate())

	err := (&Message{}).Validate()
	require.Error(t, err)
	var invalid *InvalidMessageError
	assert.ErrorAs(t, err, &invalid)

	var nilMsg *Message
	assert.Error(t, nilMsg.Validate())
}

func TestUnmarshalJSON_Defaults(t *testing.T) {
	raw := `{"message_type":"notification.create","data":{"user_id":"user123"}}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, "notification.create", msg.Type)
	assert.Equal(t, "user123", msg.Data["user_id"])
	assert.Equal(t, SenderSystem, msg.Sender)
	assert.WithinDuration(t, time.Now(), msg.Timestamp, time.Second)
}

func TestUnmarshalJSON_ExplicitFields(t *testing.T) {
	raw := `{"message_type":"user.action.login","timestamp":1700000000.5,"sender":"gateway"}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, "gateway", msg.Sender)
	assert.Equal(t, int64(1700000000), msg.Timestamp.Unix())
}

func TestMarshalJSON_WireSchema(t *testing.T) {
	msg := New("system.resource.request", map[string]any{"resource_type": "cpu"})

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "system.resource.request", decoded["message_type"])
	assert.Equal(t, SenderSystem, decoded["sender"])
	assert.Greater(t, decoded["timestamp"].(float64), float64(0))
}
