package infrastructure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
)

func deviceEvent(text string, fromMe, group bool) *events.Message {
	msg := &waProto.Message{}
	if text != "" {
		msg.Conversation = &text
	}
	return &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:     types.NewJID("5215550001", types.DefaultUserServer),
				Sender:   types.NewJID("5215550001", types.DefaultUserServer),
				IsFromMe: fromMe,
				IsGroup:  group,
			},
			ID:        "3EB0ABC",
			PushName:  "Ana",
			Timestamp: time.Unix(1700000000, 0),
		},
		Message: msg,
	}
}

func TestParseDeviceMessage(t *testing.T) {
	got, ok := ParseDeviceMessage(deviceEvent("hola", false, false))
	assert.True(t, ok)
	assert.Equal(t, DeviceMessage{
		ID:        "3EB0ABC",
		Phone:     "5215550001",
		Name:      "Ana",
		Text:      "hola",
		Timestamp: time.Unix(1700000000, 0),
	}, got)

	extended := deviceEvent("", false, false)
	body := "con formato"
	extended.Message.ExtendedTextMessage = &waProto.ExtendedTextMessage{Text: &body}
	got, ok = ParseDeviceMessage(extended)
	assert.True(t, ok)
	assert.Equal(t, "con formato", got.Text)
}

func TestParseDeviceMessage_Rejects(t *testing.T) {
	tests := []struct {
		name string
		evt  *events.Message
	}{
		{"own message", deviceEvent("hola", true, false)},
		{"group", deviceEvent("hola", false, true)},
		{"no text", deviceEvent("", false, false)},
		{"nil", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseDeviceMessage(tt.evt)
			assert.False(t, ok)
		})
	}
}
