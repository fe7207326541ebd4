package toolrpc

import (
	"errors"
	"fmt"
	"net/url"
)

// Config carries the credentials and routing identity for one Session.
// All values are passed in explicitly by the caller; the library never reads
// process environment or other ambient state.
type Config struct {
	// BaseURL is the tool server endpoint. Entity and org routing
	// parameters are appended to its query string.
	BaseURL string

	// EntityID and OrgID route the request to the right tenant on the
	// server side.
	EntityID string
	OrgID    string

	// Token is the bearer credential attached to every request.
	Token string

	// ClientInfo identifies this client in the initialize handshake and
	// the identification header. Left empty, a library default is used.
	ClientInfo Info
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is required")
	}
	if c.Token == "" {
		return errors.New("bearer token is required")
	}
	if c.EntityID == "" {
		return errors.New("entity id is required")
	}
	if c.OrgID == "" {
		return errors.New("org id is required")
	}
	return nil
}

// endpoint builds the full request URL with the routing parameters embedded
// in the query string.
func (c Config) endpoint() (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("entityid", c.EntityID)
	q.Set("orgid", c.OrgID)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
