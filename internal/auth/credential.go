// Package auth obtains the Google credential forwarded to the scanning backend.
//
// The credential is opaque: once produced it is carried as raw JSON and sent verbatim in the scan request's
// "credentials" field. Nothing downstream decodes it.
package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/facescan/internal/shared"
	"golang.org/x/oauth2"
)

// Credential is an identity-provider-issued token carried as raw JSON.
type Credential struct {
	raw json.RawMessage
}

var (
	_ json.Marshaler   = Credential{}
	_ json.Unmarshaler = (*Credential)(nil)
)

// ParseCredential wraps any syntactically valid JSON document as a [Credential].
func ParseCredential(data []byte) (Credential, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Credential{}, fmt.Errorf("%w: empty credential", shared.ErrMissingCredentials)
	}
	if !json.Valid(data) {
		return Credential{}, fmt.Errorf("%w: credential is not valid JSON", shared.ErrInvalidInput)
	}
	return Credential{raw: append(json.RawMessage(nil), data...)}, nil
}

// tokenCredential is the shape written once when a login completes.
type tokenCredential struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	ClientID     string    `json:"client_id"`
	Scope        string    `json:"scope,omitempty"`
}

// CredentialFromToken serializes an OAuth2 token into an opaque credential.
func CredentialFromToken(token *oauth2.Token, clientID string) (Credential, error) {
	if token == nil || token.AccessToken == "" {
		return Credential{}, fmt.Errorf("%w: token has no access token", shared.ErrAuthFailed)
	}

	tc := tokenCredential{
		AccessToken:  token.AccessToken,
		TokenType:    token.Type(),
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		ClientID:     clientID,
	}
	if id, ok := token.Extra("id_token").(string); ok {
		tc.IDToken = id
	}
	if scope, ok := token.Extra("scope").(string); ok {
		tc.Scope = scope
	}

	data, err := json.Marshal(tc)
	if err != nil {
		return Credential{}, fmt.Errorf("failed to encode credential: %w", err)
	}
	return Credential{raw: data}, nil
}

// IsZero reports whether no credential is held.
func (c Credential) IsZero() bool { return len(c.raw) == 0 }

// Bytes returns a copy of the raw JSON.
func (c Credential) Bytes() []byte { return append([]byte(nil), c.raw...) }

// MarshalJSON emits the held JSON unchanged (null when empty).
func (c Credential) MarshalJSON() ([]byte, error) {
	if c.IsZero() {
		return []byte("null"), nil
	}
	return c.raw, nil
}

// UnmarshalJSON stores data without interpreting it.
func (c *Credential) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		c.raw = nil
		return nil
	}
	c.raw = append(json.RawMessage(nil), data...)
	return nil
}

// String never prints the token itself.
func (c Credential) String() string {
	if c.IsZero() {
		return "<no credential>"
	}
	return fmt.Sprintf("<credential %d bytes>", len(c.raw))
}
