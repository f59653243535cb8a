// Package main provides a CLI tool for generating operator tokens for the
// attest API. Tokens minted with the dev signing key will NOT work against a
// production deployment.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"attest/internal/token"
)

const (
	// Dev signing key - matches config.go when JWT_SIGNING_KEY is not set
	devSigningKey = "dev-secret-key-change-in-production"

	defaultIssuer   = "attest"
	defaultAudience = "attest-operator"
	defaultTokenTTL = 15 * time.Minute
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresIn string            `json:"expires_in"`
	Operator  string            `json:"operator"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	operator := flag.String("operator", "", "Operator identity to embed in the token (required)")
	signingKey := flag.String("signing-key", "", "Signing key. Defaults to the dev key or JWT_SIGNING_KEY.")
	env := flag.String("env", "dev", "Environment claim")
	ttl := flag.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	jsonOutput := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	if *operator == "" {
		fmt.Fprintln(os.Stderr, "Usage: tokengen -operator <ledger-address> [-ttl 1h] [-env dev] [-json]")
		fmt.Fprintln(os.Stderr, "\nThe operator value must match AUTHORITY_ADMIN_ADDRESS for lifecycle calls to pass the admin gate.")
		os.Exit(1)
	}

	key := *signingKey
	if key == "" {
		key = os.Getenv("JWT_SIGNING_KEY")
	}
	if key == "" {
		key = devSigningKey
	}

	svc := token.NewService(key, defaultIssuer, defaultAudience, *ttl).WithEnv(*env)
	signed, err := svc.Generate(*operator)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(tokenOutput{
			Token:     signed,
			Type:      "operator_token",
			ExpiresIn: ttl.String(),
			Operator:  *operator,
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
		return
	}

	fmt.Println("Operator Token (JWT)")
	fmt.Println("====================")
	fmt.Printf("Operator:   %s\n", *operator)
	fmt.Printf("Expires In: %s\n", *ttl)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(signed)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/credentials")
}
