package chat

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/folioai/chatgate/internal/errors"
)

// DefaultMaxMessageLength bounds a message in characters (runes), before trimming.
const DefaultMaxMessageLength = 4000

// Request is the decoded POST /api/chat body.
type Request struct {
	Message string
	UserID  string
}

type rawRequest struct {
	Message json.RawMessage `json:"message"`
	UserID  json.RawMessage `json:"userId"`
}

// DecodeRequest parses and validates a chat body.
//
// Checks run in order: valid JSON, message is a non-empty JSON string,
// message is not blank after trimming, message length.
func DecodeRequest(body []byte, maxLength int) (Request, *errors.ErrorEnvelope) {
	if maxLength <= 0 {
		maxLength = DefaultMaxMessageLength
	}

	var raw rawRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return Request{}, apperrors.NewInvalidJSONError(err)
	}

	var msg string
	if !decodeString(raw.Message, &msg) || msg == "" {
		return Request{}, apperrors.NewInvalidMessageError()
	}
	if strings.TrimSpace(msg) == "" {
		return Request{}, apperrors.NewEmptyMessageError()
	}
	if utf8.RuneCountInString(msg) > maxLength {
		return Request{}, apperrors.NewMessageTooLongError(maxLength)
	}

	req := Request{Message: msg}
	var userID string
	if decodeString(raw.UserID, &userID) {
		req.UserID = userID
	}
	return req, nil
}

func decodeString(raw json.RawMessage, out *string) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return false
	}
	return json.Unmarshal(trimmed, out) == nil
}
