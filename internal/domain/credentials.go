package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CredentialKind discriminates the stored secret shape. Each platform's
// adapter decodes only the kind it expects.
type CredentialKind string

const (
	CredentialAPIKey       CredentialKind = "api_key"
	CredentialKeySecret    CredentialKind = "key_secret"
	CredentialUserPassword CredentialKind = "user_password"
)

// Credentials is a tagged union over the secret shapes platforms use: a bare
// API key, an id:secret composite (Ghost admin keys), or a username plus
// application password (WordPress).
type Credentials struct {
	Kind     CredentialKind `json:"kind" yaml:"kind"`
	APIKey   string         `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	KeyID    string         `json:"key_id,omitempty" yaml:"key_id,omitempty"`
	Secret   string         `json:"secret,omitempty" yaml:"secret,omitempty"`
	Username string         `json:"username,omitempty" yaml:"username,omitempty"`
	Password string         `json:"password,omitempty" yaml:"password,omitempty"`
}

// APIKeyCredentials wraps a bare API key.
func APIKeyCredentials(key string) Credentials {
	return Credentials{Kind: CredentialAPIKey, APIKey: key}
}

// KeySecretCredentials wraps an id:secret composite key.
func KeySecretCredentials(id, secret string) Credentials {
	return Credentials{Kind: CredentialKeySecret, KeyID: id, Secret: secret}
}

// UserPasswordCredentials wraps a username/application-password pair.
func UserPasswordCredentials(user, password string) Credentials {
	return Credentials{Kind: CredentialUserPassword, Username: user, Password: password}
}

// Validate checks the fields required by the declared kind are present.
func (c Credentials) Validate() error {
	switch c.Kind {
	case CredentialAPIKey:
		if strings.TrimSpace(c.APIKey) == "" {
			return fmt.Errorf("api_key credentials missing key")
		}
	case CredentialKeySecret:
		if strings.TrimSpace(c.KeyID) == "" || strings.TrimSpace(c.Secret) == "" {
			return fmt.Errorf("key_secret credentials missing key id or secret")
		}
	case CredentialUserPassword:
		if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == "" {
			return fmt.Errorf("user_password credentials missing username or password")
		}
	default:
		return fmt.Errorf("unknown credential kind %q", c.Kind)
	}
	return nil
}

// Redacted returns a loggable copy with secret material blanked.
func (c Credentials) Redacted() map[string]string {
	out := map[string]string{"kind": string(c.Kind)}
	if c.Username != "" {
		out["username"] = c.Username
	}
	if c.KeyID != "" {
		out["key_id"] = c.KeyID
	}
	return out
}

// MarshalJSON keeps the union compact: fields irrelevant to the kind are
// dropped on encode so stored blobs stay minimal.
func (c Credentials) MarshalJSON() ([]byte, error) {
	type alias Credentials
	a := alias{Kind: c.Kind}
	switch c.Kind {
	case CredentialAPIKey:
		a.APIKey = c.APIKey
	case CredentialKeySecret:
		a.KeyID, a.Secret = c.KeyID, c.Secret
	case CredentialUserPassword:
		a.Username, a.Password = c.Username, c.Password
	}
	return json.Marshal(a)
}
