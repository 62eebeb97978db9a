// AngelaMos | 2026
// main.go

// tokenctl manages invitation tokens over the admin HTTP API.
//
//	tokenctl -url http://localhost:5000 gen -max-usage 1
//	tokenctl list
//	tokenctl status DoubleWizardSky
//	tokenctl disable DoubleWizardSky
//	tokenctl delete DoubleWizardSky
//
// The admin secret is read from the ADMIN_SECRET environment variable
// unless -secret is given.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const requestTimeout = 10 * time.Second

func main() {
	baseURL := flag.String(
		"url", envOr("GATEKEEPER_URL", "http://localhost:5000"),
		"base URL of the gatekeeper API",
	)
	secret := flag.String(
		"secret", os.Getenv("ADMIN_SECRET"),
		"admin shared secret",
	)
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "admin secret required (-secret or ADMIN_SECRET)")
		os.Exit(2)
	}
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	client := &apiClient{
		baseURL: *baseURL,
		secret:  *secret,
		http:    &http.Client{Timeout: requestTimeout},
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := dispatch(ctx, client, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, client *apiClient, args []string) error {
	command, rest := args[0], args[1:]

	switch command {
	case "gen":
		return genCommand(ctx, client, rest)
	case "list":
		return client.do(ctx, http.MethodGet, "/v1/tokens", nil)
	case "status":
		name, err := nameArg(rest)
		if err != nil {
			return err
		}
		return client.do(ctx, http.MethodGet, "/v1/tokens/"+name, nil)
	case "disable":
		name, err := nameArg(rest)
		if err != nil {
			return err
		}
		return client.do(ctx, http.MethodPost, "/v1/tokens/"+name+"/disable", nil)
	case "delete":
		name, err := nameArg(rest)
		if err != nil {
			return err
		}
		return client.do(ctx, http.MethodDelete, "/v1/tokens/"+name, nil)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func genCommand(ctx context.Context, client *apiClient, args []string) error {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	expire := fs.String(
		"expire", "",
		"expiration date, RFC 3339 or YYYY-MM-DD (empty for none)",
	)
	maxUsage := fs.Int("max-usage", 0, "maximum redemptions (0 for unlimited)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	body := map[string]any{"max_usage": *maxUsage}
	if *expire != "" {
		body["expiration_date"] = *expire
	}

	return client.do(ctx, http.MethodPost, "/v1/tokens", body)
}

func nameArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one token name")
	}
	return args[0], nil
}

type apiClient struct {
	baseURL string
	secret  string
	http    *http.Client
}

// do performs the request and pretty-prints the JSON response. Non-2xx
// responses are printed too, then reported as an error with the status.
func (c *apiClient) do(
	ctx context.Context,
	method, path string,
	body map[string]any,
) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "SharedSecret "+c.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	printJSON(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}

func printJSON(raw []byte) {
	if len(raw) == 0 {
		return
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		os.Stdout.Write(raw) //nolint:errcheck // best-effort output
		fmt.Println()
		return
	}
	fmt.Println(pretty.String())
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: tokenctl [-url URL] [-secret SECRET] <command>

commands:
  gen [-expire DATE] [-max-usage N]   create a token
  list                                list all tokens
  status <name>                       show one token
  disable <name>                      disable a token
  delete <name>                       delete a token`)
}
