package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// SendMessage is a normalized send_message request.
type SendMessage struct {
	ReceiverID int64
	Content    string
	Type       MessageType
}

// NormalizeSendMessage validates raw wire values before any side effect.
// receiverID accepts a JSON number or a numeric string; content must be a
// string that is non-empty after trimming; type is IMAGE only when it is
// exactly "IMAGE".
func NormalizeSendMessage(receiverID, content, msgType any) (SendMessage, error) {
	id, ok := positiveInt(receiverID)
	if !ok {
		return SendMessage{}, ErrInvalidPayload
	}

	text, ok := content.(string)
	if !ok {
		return SendMessage{}, ErrInvalidPayload
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return SendMessage{}, ErrInvalidPayload
	}

	typ := MessageTypeText
	if s, ok := msgType.(string); ok && s == string(MessageTypeImage) {
		typ = MessageTypeImage
	}

	return SendMessage{ReceiverID: id, Content: text, Type: typ}, nil
}

func positiveInt(v any) (int64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int64:
		return x, x > 0
	case int:
		return int64(x), x > 0
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 0 || f > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
