// Package validator asks the remote authority whether a passport
// credential may open the door.
package validator

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"dooropener/credential"
)

// DefaultURL is the authority endpoint used when none is configured.
const DefaultURL = "https://id.purduehackers.com/api/door"

// Outcome classifies the authority's answer.
type Outcome int

const (
	// Unreachable means no answer was received; the authority never saw
	// or never answered the request.
	Unreachable Outcome = iota
	// Valid means the authority accepted the credential.
	Valid
	// Invalid means the authority answered and rejected the credential.
	Invalid
)

func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unreachable"
	}
}

// Config holds authority connection settings.
type Config struct {
	URL        string `yaml:"url"`
	CAFile     string `yaml:"ca_file"`     // optional PEM bundle for private authorities
	TimeoutSec int    `yaml:"timeout_sec"` // whole-request timeout, default 5
}

// Client posts credentials to the authority.
type Client struct {
	url  string
	http *http.Client
}

// New creates a Client from cfg.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 5
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates in %s", cfg.CAFile)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}

	return NewWithHTTPClient(cfg.URL, &http.Client{
		Transport: transport,
		Timeout:   time.Duration(cfg.TimeoutSec) * time.Second,
	}), nil
}

// NewWithHTTPClient creates a Client using hc for transport.
func NewWithHTTPClient(url string, hc *http.Client) *Client {
	return &Client{url: url, http: hc}
}

type request struct {
	ID     int32  `json:"id"`
	Secret string `json:"secret"`
}

// Validate sends cred to the authority. The error is non-nil only for
// Unreachable and describes the transport failure.
func (c *Client) Validate(ctx context.Context, cred credential.Credential) (Outcome, error) {
	body, err := json.Marshal(request{ID: cred.ID, Secret: cred.Secret})
	if err != nil {
		return Unreachable, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Unreachable, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Unreachable, fmt.Errorf("make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return Valid, nil
	}

	text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	log.Printf("Authority rejected %s: %s %q", cred, resp.Status, text)
	return Invalid, nil
}
