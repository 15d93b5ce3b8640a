package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Secret is the server-held credential, stored base64 encoded as a JSON
// object in the process environment.
type Secret struct {
	TranscriptionServiceAPIKey string `json:"TRANSCRIPTION_SERVICE_API_KEY"`
}

// LoadSecret decodes the base64 JSON document. Every failure wraps
// ErrMalformedSecret.
func LoadSecret(encoded string) (*Secret, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSecret, err)
	}

	var s Secret
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSecret, err)
	}
	if s.TranscriptionServiceAPIKey == "" {
		return nil, fmt.Errorf("%w: TRANSCRIPTION_SERVICE_API_KEY is empty", ErrMalformedSecret)
	}
	return &s, nil
}

// Request carries the caller supplied parameters of a publish call.
type Request struct {
	InstanceID string
	Key        string
}

func FromQuery(q url.Values) Request {
	return Request{
		InstanceID: q.Get("ec2_id"),
		Key:        q.Get("key"),
	}
}

func (r Request) Validate() error {
	if r.InstanceID == "" || r.Key == "" {
		return ErrMissingParameter
	}
	return nil
}

func (s *Secret) Authenticate(instanceID, key string) error {
	if err := (Request{InstanceID: instanceID, Key: key}).Validate(); err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.TranscriptionServiceAPIKey)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
