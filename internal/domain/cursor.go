package domain

import (
	"encoding/base64"
	"fmt"

	"github.com/goccy/go-json"
)

// CourseCursor allows stable pagination by course id.
type CourseCursor struct {
	ID string `json:"id"`
}

// EncodeCursor renders the opaque token handed to clients.
func EncodeCursor(c CourseCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a cursor token into a CourseCursor.
func DecodeCursor(token string) (*CourseCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor CourseCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	return &cursor, nil
}
