package chat

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNormalizeMessageFieldVariants(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Message
	}{
		{
			name: "nested user with rfc3339 timestamp",
			json: `{"id":"m1","user":{"id":"user_a"},"content":"hi","created_at":"2026-03-01T10:00:00Z"}`,
			want: Message{
				ID:        "m1",
				AuthorID:  "user_a",
				Content:   "hi",
				CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "snake user id with epoch millis",
			json: `{"id":"m2","user_id":"user_b","createdAt":1767225600000}`,
			want: Message{
				ID:        "m2",
				AuthorID:  "user_b",
				CreatedAt: time.UnixMilli(1767225600000).UTC(),
			},
		},
		{
			name: "camel user id",
			json: `{"id":"m3","userId":"user_c"}`,
			want: Message{ID: "m3", AuthorID: "user_c"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var raw rawMessage
			if err := json.Unmarshal([]byte(tc.json), &raw); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got := normalizeMessage(raw)
			if got.ID != tc.want.ID || got.AuthorID != tc.want.AuthorID || got.Content != tc.want.Content {
				t.Fatalf("unexpected message: %+v", got)
			}
			if !got.CreatedAt.Equal(tc.want.CreatedAt) {
				t.Fatalf("expected created at %v, got %v", tc.want.CreatedAt, got.CreatedAt)
			}
		})
	}
}

func TestNormalizeMessageDeletedFlags(t *testing.T) {
	payloads := []string{
		`{"id":"m1","deleted":true}`,
		`{"id":"m1","is_deleted":true}`,
		`{"id":"m1","status":"deleted"}`,
		`{"id":"m1","state":"Deleted"}`,
	}
	for _, payload := range payloads {
		var raw rawMessage
		if err := json.Unmarshal([]byte(payload), &raw); err != nil {
			t.Fatalf("unmarshal %s: %v", payload, err)
		}
		if !normalizeMessage(raw).Deleted {
			t.Fatalf("expected deleted for payload %s", payload)
		}
	}

	var live rawMessage
	if err := json.Unmarshal([]byte(`{"id":"m1","status":"sent"}`), &live); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if normalizeMessage(live).Deleted {
		t.Fatal("live message flagged deleted")
	}
}

func TestNormalizeMessageAttachmentContentTypes(t *testing.T) {
	payload := `{"id":"m1","attachments":[{"id":"a1","content_type":"image/png"},{"id":"a2","contentType":"video/mp4"}]}`
	var raw rawMessage
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	msg := normalizeMessage(raw)
	if len(msg.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(msg.Attachments))
	}
	if msg.Attachments[0].ContentType != "image/png" {
		t.Fatalf("snake content type lost: %+v", msg.Attachments[0])
	}
	if msg.Attachments[1].ContentType != "video/mp4" {
		t.Fatalf("camel content type lost: %+v", msg.Attachments[1])
	}
}

func TestListEnvelopePrefersPosts(t *testing.T) {
	payload := `{"posts":[{"id":"p1"}],"data":[{"id":"d1"}]}`
	var envelope listEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	msgs := envelope.messages()
	if len(msgs) != 1 || msgs[0].ID != "p1" {
		t.Fatalf("expected posts array to win, got %+v", msgs)
	}
}

func TestNormalizeUserFallbacks(t *testing.T) {
	payload := `{"id":"u1","username":"ali","fullName":"Ali A","profile_picture":{"source_url":"https://cdn/x.png"}}`
	var raw rawUser
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	user := normalizeUser(raw)
	if user.DisplayName != "Ali A" {
		t.Fatalf("expected fullName fallback, got %q", user.DisplayName)
	}
	if user.AvatarURL != "https://cdn/x.png" {
		t.Fatalf("expected profile picture source url, got %q", user.AvatarURL)
	}
}
