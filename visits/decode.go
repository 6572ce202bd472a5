package visits

import (
	"bytes"
	"encoding/json"

	"go.uber.org/zap"

	"gatedesk/models"
)

// DecodeGuests decodes an upstream guest list without ever failing. A payload that is not a JSON
// array yields an empty list, and elements that do not decode are skipped. Both cases are logged.
func DecodeGuests(raw json.RawMessage, logger *zap.Logger) []models.RawGuest {
	if logger == nil {
		logger = zap.NewNop()
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		logger.Warn("guest payload is not an array", zap.ByteString("payload", truncate(trimmed, 256)))
		return []models.RawGuest{}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		logger.Warn("guest payload is malformed", zap.Error(err))
		return []models.RawGuest{}
	}

	guests := make([]models.RawGuest, 0, len(elements))
	for i, el := range elements {
		var g models.RawGuest
		if err := json.Unmarshal(el, &g); err != nil {
			logger.Warn("skipping malformed guest record", zap.Int("index", i), zap.Error(err))
			continue
		}
		guests = append(guests, g)
	}
	return guests
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
