package classify

import (
	"testing"

	"github.com/chatpoints/chatpoints-backend/pkg/chat"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		msg          chat.Message
		wantEligible bool
		wantCategory Category
	}{
		{
			name:         "png attachment",
			msg:          chat.Message{Attachments: []chat.Attachment{{ContentType: "image/png"}}},
			wantEligible: true,
			wantCategory: CategoryImage,
		},
		{
			name: "image among other attachments",
			msg: chat.Message{Attachments: []chat.Attachment{
				{ContentType: "application/pdf"},
				{ContentType: "image/jpeg"},
			}},
			wantEligible: true,
			wantCategory: CategoryImage,
		},
		{
			name:         "video only",
			msg:          chat.Message{Attachments: []chat.Attachment{{ContentType: "video/mp4"}}},
			wantCategory: CategoryText,
		},
		{
			name:         "plain text",
			msg:          chat.Message{Content: "hello"},
			wantCategory: CategoryText,
		},
		{
			name:         "no attachments no content",
			msg:          chat.Message{},
			wantCategory: CategoryText,
		},
		{
			name:         "command",
			msg:          chat.Message{Content: "!points"},
			wantCategory: CategoryCommand,
		},
		{
			name:         "command with surrounding whitespace",
			msg:          chat.Message{Content: "  !leaderboard  "},
			wantCategory: CategoryCommand,
		},
		{
			name:         "image wins over command content",
			msg:          chat.Message{Content: "!points", Attachments: []chat.Attachment{{ContentType: "image/gif"}}},
			wantEligible: true,
			wantCategory: CategoryImage,
		},
		{
			name:         "bare bang is not a command",
			msg:          chat.Message{Content: "!"},
			wantCategory: CategoryText,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.msg)
			if got.Eligible != tc.wantEligible {
				t.Fatalf("eligible: got %v, want %v", got.Eligible, tc.wantEligible)
			}
			if got.Category != tc.wantCategory {
				t.Fatalf("category: got %q, want %q", got.Category, tc.wantCategory)
			}
		})
	}
}
