package transfer

import "encoding/json"

// envelope is the canonical response shape for both endpoints. An error field
// always wins, even on HTTP 200.
type envelope struct {
	Success          bool            `json:"success"`
	Error            string          `json:"error"`
	Result           json.RawMessage `json:"result"`
	Filename         string          `json:"filename"`
	FileID           string          `json:"file_id"`
	AvailableColumns []string        `json:"available_columns"`
	Analysis         json.RawMessage `json:"analysis"`
}
