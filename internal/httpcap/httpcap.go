// Package httpcap implements the outbound HTTP capability: a guest-issued
// fetch request goes out over a real net/http client, with client
// certificate handling and forbidden response header stripping applied the
// same way the reference host does it.
package httpcap

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sandhost/capahost/internal/capability"
	"github.com/sandhost/capahost/internal/logger"
)

// forbiddenHeaders are hop-by-hop or otherwise unsafe-to-forward headers,
// stripped from the response before it reaches the guest.
var forbiddenHeaders = map[string]struct{}{
	"connection":          {},
	"host":                 {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"transfer-encoding":   {},
	"upgrade":             {},
	"keep-alive":          {},
	"proxy-connection":    {},
	"http2-settings":      {},
}

// Request is the guest-facing outbound HTTP request shape.
type Request struct {
	Method  string              `json:"method"`
	URL     string              `json:"url"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    []byte              `json:"body,omitempty"`
}

// Response is the guest-facing outbound HTTP response shape.
type Response struct {
	StatusCode int                 `json:"status_code"`
	Headers    map[string][]string `json:"headers,omitempty"`
	Body       []byte              `json:"body,omitempty"`
}

// Client performs outbound fetches on behalf of guests.
type Client struct {
	http *http.Client
}

// New creates an outbound HTTP capability client.
func New() *Client {
	return &Client{http: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch issues req and returns the response with forbidden headers
// stripped. A `Client-Cert` request header carries a base64-encoded PEM
// identity used for mTLS; it is consumed and never forwarded upstream. The
// `Host` header is always stripped before the request is sent, matching the
// default host's workaround for front-door proxies that reject an explicit
// Host override.
func (c *Client) Fetch(ctx context.Context, req Request) (Response, error) {
	parsed, err := url.Parse(req.URL)
	if err != nil {
		return Response{}, capability.HTTPRequestURIInvalid(err)
	}

	httpClient := c.http
	if certHeader, ok := lookupHeader(req.Headers, "Client-Cert"); ok {
		identity, err := clientIdentity(certHeader)
		if err != nil {
			return Response{}, capability.InternalError(err)
		}
		httpClient = &http.Client{
			Timeout: c.http.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{Certificates: []tls.Certificate{identity}},
			},
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, parsed.String(), bytes.NewReader(req.Body))
	if err != nil {
		return Response{}, capability.HTTPRequestURIInvalid(err)
	}
	for k, vals := range req.Headers {
		if strings.EqualFold(k, "client-cert") || strings.EqualFold(k, "host") {
			continue
		}
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Host = ""

	logger.HTTPCapability().Debug().Str("method", req.Method).Str("url", req.URL).Msg("outbound fetch")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return Response{}, translateTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, capability.InternalError(err)
	}

	headers := make(map[string][]string, len(resp.Header))
	for k, vals := range resp.Header {
		if _, forbidden := forbiddenHeaders[strings.ToLower(k)]; forbidden {
			continue
		}
		headers[k] = vals
	}

	return Response{StatusCode: resp.StatusCode, Headers: headers, Body: body}, nil
}

func lookupHeader(headers map[string][]string, name string) (string, bool) {
	for k, vals := range headers {
		if strings.EqualFold(k, name) && len(vals) > 0 {
			return vals[0], true
		}
	}
	return "", false
}

func clientIdentity(base64PEM string) (tls.Certificate, error) {
	pemBytes, err := base64.StdEncoding.DecodeString(base64PEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("client-cert: invalid base64: %w", err)
	}
	cert, err := tls.X509KeyPair(pemBytes, pemBytes)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("client-cert: invalid pem: %w", err)
	}
	return cert, nil
}

func translateTransportError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context deadline exceeded"), strings.Contains(msg, "Client.Timeout"):
		return capability.ConnectionTimeout(err)
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"):
		return capability.ConnectionRefused(err)
	case strings.Contains(msg, "unsupported protocol scheme"), strings.Contains(msg, "invalid URL"):
		return capability.HTTPRequestURIInvalid(err)
	default:
		return capability.InternalError(err)
	}
}
