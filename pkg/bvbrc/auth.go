package bvbrc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Token files searched in the home directory, in order of preference.
var tokenFiles = []string{
	".bvbrc_token",
	".patric_token",
	".p3_token",
}

// ParseToken parses a token of the form
// un=<user>|tokenid=<uuid>|expiry=<unix>|client_id=...|sig=<signature>.
func ParseToken(raw string) (*AuthToken, error) {
	if raw == "" {
		return nil, ErrInvalidTokenFormat
	}

	token := &AuthToken{Raw: raw}
	for _, part := range strings.Split(raw, "|") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch key {
		case "un":
			token.Username = value
		case "tokenid":
			token.TokenID = value
		case "expiry":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid expiry timestamp", ErrInvalidTokenFormat)
			}
			token.Expiry = time.Unix(ts, 0)
		}
	}

	switch {
	case token.Username == "":
		return nil, fmt.Errorf("%w: missing username", ErrInvalidTokenFormat)
	case token.TokenID == "":
		return nil, fmt.Errorf("%w: missing token ID", ErrInvalidTokenFormat)
	case token.Expiry.IsZero():
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidTokenFormat)
	}
	return token, nil
}

// LoadToken returns the first token found in BVBRC_TOKEN, P3_AUTH_TOKEN,
// ~/.bvbrc_token, ~/.patric_token or ~/.p3_token.
func LoadToken() (string, error) {
	for _, env := range []string{"BVBRC_TOKEN", "P3_AUTH_TOKEN"} {
		if token := strings.TrimSpace(os.Getenv(env)); token != "" {
			return token, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	for _, name := range tokenFiles {
		data, err := os.ReadFile(filepath.Join(home, name))
		if err != nil {
			continue
		}
		if token := strings.TrimSpace(string(data)); token != "" {
			return token, nil
		}
	}
	return "", ErrNotAuthenticated
}

// SaveToken writes a token to ~/.bvbrc_token.
func SaveToken(token string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	path := filepath.Join(home, tokenFiles[0])
	if err := os.WriteFile(path, []byte(token), 0600); err != nil {
		return "", err
	}
	return path, nil
}

// UsernameFromToken extracts the username from a raw token, or returns "".
func UsernameFromToken(token string) string {
	parsed, err := ParseToken(token)
	if err != nil {
		return ""
	}
	return parsed.Username
}

// WorkspacePath builds /<user>@patricbrc.org/<workspace>/<path>.
// Usernames that already carry a realm are used as is.
func WorkspacePath(username, workspace, path string) string {
	if workspace == "" {
		workspace = "home"
	}
	if !strings.Contains(username, "@") {
		username += "@patricbrc.org"
	}
	path = strings.TrimPrefix(path, "/")
	return fmt.Sprintf("/%s/%s/%s", username, workspace, path)
}
