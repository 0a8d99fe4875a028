// Package main provides a CI-friendly smoke test for the Marquee auth flows.
//
// It validates:
//   - register issues a token
//   - repeating the registration with the same password is "already registered"
//   - the token opens /auth/status and the catalog
//   - login with a wrong password is rejected
//   - logout revokes the token
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

type authResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	AuthToken string `json:"auth_token"`
}

type smokeClient struct {
	base    string
	http    *http.Client
	verbose bool
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		password = flag.String("password", "smoke-test-password", "Password for the throwaway identity")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-request timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	u, err := url.Parse(*baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fatalf("invalid -url: %q", *baseURL)
	}

	c := &smokeClient{
		base:    strings.TrimRight(*baseURL, "/"),
		http:    &http.Client{Timeout: *timeout},
		verbose: *verbose,
	}

	email := "smoke-" + strings.ToLower(ulid.Make().String()) + "@example.com"
	reg := map[string]string{"name": "Smoke", "email": email, "password": *password}

	var first authResponse
	c.mustDo(http.MethodPost, "/auth/register", "", reg, http.StatusCreated, &first)
	if first.AuthToken == "" {
		fatalf("register: empty auth_token")
	}

	c.mustDo(http.MethodPost, "/auth/register", "", reg, http.StatusAccepted, nil)

	c.mustDo(http.MethodGet, "/auth/status", first.AuthToken, nil, http.StatusOK, nil)
	c.mustDo(http.MethodGet, "/api/movies", first.AuthToken, nil, http.StatusOK, nil)

	c.mustDo(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": *password + "x"}, http.StatusUnauthorized, nil)

	var second authResponse
	c.mustDo(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": *password}, http.StatusOK, &second)

	c.mustDo(http.MethodPost, "/auth/logout", first.AuthToken, nil, http.StatusOK, nil)
	c.mustDo(http.MethodGet, "/auth/status", first.AuthToken, nil, http.StatusUnauthorized, nil)

	// Revoking one token leaves the other session intact.
	c.mustDo(http.MethodGet, "/auth/status", second.AuthToken, nil, http.StatusOK, nil)
	c.mustDo(http.MethodPost, "/auth/logout", second.AuthToken, nil, http.StatusOK, nil)

	fmt.Printf("OK: email=%s\n", email)
}

func (c *smokeClient) mustDo(method, path, tok string, body any, wantStatus int, out any) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fatalf("marshal %s %s: %v", method, path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		fatalf("build %s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fatalf("%s %s: read body: %v", method, path, err)
	}
	if c.verbose {
		fmt.Printf("%s %s -> %d %s\n", method, path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	if resp.StatusCode != wantStatus {
		fatalf("%s %s: status=%d want=%d body=%s", method, path, resp.StatusCode, wantStatus, bytes.TrimSpace(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			fatalf("%s %s: decode: %v", method, path, err)
		}
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
