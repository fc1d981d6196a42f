package veil

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"
	"github.com/sandertv/gophertunnel/minecraft/auth"
	"golang.org/x/oauth2"
)

// TokenSource returns the Xbox Live token source the relay logs in to the
// remote server with. A refresh token cached in path is reused, otherwise
// the device code login is started on first use. Refreshed tokens are
// written back to path.
func TokenSource(path string, log logr.Logger) (oauth2.TokenSource, error) {
	tok, err := readToken(path)
	if err != nil {
		return nil, err
	}
	var src oauth2.TokenSource
	if tok != nil {
		src = auth.RefreshTokenSource(tok)
	} else {
		log.Info("no cached Xbox Live token, a device login is requested on the first connection")
		src = auth.TokenSource
	}
	return newTokenCache(path, src, tok, log), nil
}

// tokenCache writes every new token of src to path.
type tokenCache struct {
	path string
	src  oauth2.TokenSource
	log  logr.Logger

	mu   sync.Mutex
	last *oauth2.Token
}

func newTokenCache(path string, src oauth2.TokenSource, last *oauth2.Token, log logr.Logger) *tokenCache {
	return &tokenCache{path: path, src: src, last: last, log: log}
}

func (c *tokenCache) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok, err := c.src.Token()
	if err != nil {
		return nil, fmt.Errorf("error getting Xbox Live token: %w", err)
	}
	if c.path != "" && !sameToken(c.last, tok) {
		if err = writeToken(c.path, tok); err != nil {
			c.log.Error(err, "could not cache Xbox Live token", "path", c.path)
		} else {
			c.log.V(1).Info("cached Xbox Live token", "path", c.path, "expiry", tok.Expiry)
		}
	}
	c.last = tok
	return tok, nil
}

func sameToken(a, b *oauth2.Token) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.AccessToken == b.AccessToken &&
		a.RefreshToken == b.RefreshToken &&
		a.Expiry.Equal(b.Expiry)
}

// readToken returns nil if there is no token at path.
func readToken(path string) (*oauth2.Token, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	tok := new(oauth2.Token)
	if err = json.Unmarshal(b, tok); err != nil {
		return nil, fmt.Errorf("error parsing token file %s: %w", path, err)
	}
	if tok.RefreshToken == "" {
		return nil, nil
	}
	return tok, nil
}

func writeToken(path string, tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}
