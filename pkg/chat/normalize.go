package chat

import (
	"encoding/json"
	"strings"
	"time"
)

// rawMessage tolerates the field spellings the platform has shipped over
// time. Exactly one of the author fields is usually set; deletion is flagged
// four different ways depending on the endpoint.
type rawMessage struct {
	ID          string          `json:"id"`
	User        *rawUser        `json:"user"`
	UserIDSnake string          `json:"user_id"`
	UserIDCamel string          `json:"userId"`
	Content     string          `json:"content"`
	Attachments []rawAttachment `json:"attachments"`
	CreatedAt   json.RawMessage `json:"created_at"`
	CreatedAtCc json.RawMessage `json:"createdAt"`
	Deleted     bool            `json:"deleted"`
	IsDeleted   bool            `json:"is_deleted"`
	Status      string          `json:"status"`
	State       string          `json:"state"`
}

type rawAttachment struct {
	ID          string `json:"id"`
	ContentType string `json:"content_type"`
	ContentTyCc string `json:"contentType"`
}

type rawUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	FullName      string `json:"fullName"`
	AvatarURL     string `json:"avatar_url"`
	ProfilePicURL string `json:"profile_pic_url"`
	ProfilePic    *struct {
		SourceURL string `json:"source_url"`
	} `json:"profile_picture"`
}

// listEnvelope covers both page shapes the platform returns: newer endpoints
// wrap messages in "posts", older ones in "data".
type listEnvelope struct {
	Posts []rawMessage `json:"posts"`
	Data  []rawMessage `json:"data"`
}

func (e listEnvelope) messages() []rawMessage {
	if len(e.Posts) > 0 {
		return e.Posts
	}
	return e.Data
}

func normalizeMessage(raw rawMessage) Message {
	msg := Message{
		ID:        raw.ID,
		AuthorID:  raw.authorID(),
		Content:   raw.Content,
		CreatedAt: raw.createdAt(),
		Deleted:   raw.deleted(),
	}
	for _, att := range raw.Attachments {
		contentType := att.ContentType
		if contentType == "" {
			contentType = att.ContentTyCc
		}
		msg.Attachments = append(msg.Attachments, Attachment{
			ID:          att.ID,
			ContentType: contentType,
		})
	}
	return msg
}

func (r rawMessage) authorID() string {
	if r.User != nil && r.User.ID != "" {
		return r.User.ID
	}
	if r.UserIDSnake != "" {
		return r.UserIDSnake
	}
	return r.UserIDCamel
}

func (r rawMessage) deleted() bool {
	return r.Deleted || r.IsDeleted ||
		strings.EqualFold(r.Status, "deleted") ||
		strings.EqualFold(r.State, "deleted")
}

func (r rawMessage) createdAt() time.Time {
	for _, raw := range [][]byte{r.CreatedAt, r.CreatedAtCc} {
		if len(raw) == 0 {
			continue
		}
		if ts, ok := parseTimestamp(raw); ok {
			return ts
		}
	}
	return time.Time{}
}

// parseTimestamp accepts RFC3339 strings and epoch milliseconds, the two
// encodings observed in the wild.
func parseTimestamp(raw []byte) (time.Time, bool) {
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if ts, err := time.Parse(time.RFC3339, asString); err == nil {
			return ts, true
		}
		return time.Time{}, false
	}
	var asNumber int64
	if err := json.Unmarshal(raw, &asNumber); err == nil && asNumber > 0 {
		return time.UnixMilli(asNumber).UTC(), true
	}
	return time.Time{}, false
}

func normalizeUser(raw rawUser) User {
	user := User{
		ID:          raw.ID,
		Username:    raw.Username,
		DisplayName: raw.Name,
		AvatarURL:   raw.AvatarURL,
	}
	if user.DisplayName == "" {
		user.DisplayName = raw.FullName
	}
	if user.AvatarURL == "" && raw.ProfilePic != nil {
		user.AvatarURL = raw.ProfilePic.SourceURL
	}
	if user.AvatarURL == "" {
		user.AvatarURL = raw.ProfilePicURL
	}
	return user
}
