package classify

import (
	"strings"

	"github.com/chatpoints/chatpoints-backend/pkg/chat"
)

// Category describes what kind of message the ingestion pipeline is looking at.
type Category string

const (
	CategoryImage   Category = "image"
	CategoryCommand Category = "command"
	CategoryText    Category = "text"
)

// Result is the classifier's verdict. Eligible messages earn points.
type Result struct {
	Eligible bool
	Category Category
}

// Classify is pure and total: it never errors and has no side effects. A
// message is reward-eligible iff at least one attachment is an image.
func Classify(msg chat.Message) Result {
	for _, att := range msg.Attachments {
		if strings.HasPrefix(att.ContentType, "image/") {
			return Result{Eligible: true, Category: CategoryImage}
		}
	}
	if IsCommand(msg.Content) {
		return Result{Category: CategoryCommand}
	}
	return Result{Category: CategoryText}
}

// IsCommand reports whether the content looks like a bot command ("!points").
func IsCommand(content string) bool {
	trimmed := strings.TrimSpace(content)
	return len(trimmed) > 1 && strings.HasPrefix(trimmed, "!")
}
