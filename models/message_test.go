package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateMessageRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateMessageRequest
		wantErr bool
	}{
		{"valid body", CreateMessageRequest{Body: "merhaba", ClientKey: "ck"}, false},
		{"missing client key", CreateMessageRequest{Body: "merhaba"}, true},
		{"client key too long", CreateMessageRequest{Body: "x", ClientKey: strings.Repeat("k", 65)}, true},
		{"empty body and attachment", CreateMessageRequest{ClientKey: "ck"}, true},
		{"body too long", CreateMessageRequest{Body: strings.Repeat("a", MaxMessageLength+1), ClientKey: "ck"}, true},
		{"attachment only", CreateMessageRequest{ClientKey: "ck", AttachmentType: AttachmentTypeImage, AttachmentURL: "/api/uploads/a.jpg"}, false},
		{"attachment with bad type", CreateMessageRequest{ClientKey: "ck", AttachmentType: "video", AttachmentURL: "/api/uploads/a.mp4"}, true},
		{"whitespace body only", CreateMessageRequest{Body: "   ", ClientKey: "ck"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestMessageSanitize(t *testing.T) {
	body := "gizli içerik"
	at := AttachmentTypeImage
	url := "/api/uploads/x.jpg"
	deleted := time.Now().UTC()

	msg := Message{
		ID:             "m1",
		Body:           &body,
		AttachmentType: &at,
		AttachmentURL:  &url,
		DeletedAt:      &deleted,
		Reactions:      []ReactionGroup{{Emoji: "👍", Count: 1}},
	}
	msg.Sanitize()

	// Tombstone: satır ve ID kalır, içerik kaybolur.
	require.Equal(t, "m1", msg.ID)
	require.Nil(t, msg.Body)
	require.Nil(t, msg.AttachmentType)
	require.Nil(t, msg.AttachmentURL)
	require.Nil(t, msg.Reactions)

	// Silinmemiş mesaja dokunulmaz.
	live := Message{ID: "m2", Body: &body}
	live.Sanitize()
	require.NotNil(t, live.Body)
}

func TestMessageIsSystem(t *testing.T) {
	require.True(t, (&Message{}).IsSystem())
	sender := "u1"
	require.False(t, (&Message{SenderID: &sender}).IsSystem())
}
