// Package main provides a CLI for issuing gateway credentials and preparing
// the api_tokens table in development databases.
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"schemagate/internal/auth/models"
	"schemagate/internal/platform/database"
	"schemagate/migrations"
	s "schemagate/pkg/string"
)

// secretBytes is the entropy behind each issued key.
const secretBytes = 32

const insertTokenQuery = `INSERT INTO api_tokens (tenant_id, name, key_hash, scopes, expires_at)
VALUES ($1, $2, $3, string_to_array($4, ','), $5)
RETURNING id::text`

type keyOutput struct {
	Key       string   `json:"key,omitempty"`
	KeyHash   string   `json:"key_hash"`
	TokenID   string   `json:"token_id,omitempty"`
	TenantID  string   `json:"tenant_id,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
	ExpiresAt string   `json:"expires_at,omitempty"`
}

func main() {
	issueCmd := flag.NewFlagSet("issue", flag.ExitOnError)
	hashCmd := flag.NewFlagSet("hash", flag.ExitOnError)
	migrateCmd := flag.NewFlagSet("migrate", flag.ExitOnError)

	issueTenant := issueCmd.String("tenant-id", "", "Tenant ID (UUID). Generated if empty.")
	issueName := issueCmd.String("name", "", "Human readable label stored with the key")
	issueScopes := issueCmd.String("scopes", "extract,chat", "Comma-separated scopes")
	issueTTL := issueCmd.Duration("ttl", 0, "Key lifetime; zero never expires")
	issueDB := issueCmd.String("database-url", os.Getenv("DATABASE_URL"), "Insert the key into this database; print only when empty")
	issueJSON := issueCmd.Bool("json", false, "Output as JSON")

	hashKey := hashCmd.String("key", "", "Key to hash; read from stdin when empty")

	migrateDB := migrateCmd.String("database-url", os.Getenv("DATABASE_URL"), "Database to migrate")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "issue":
		issueCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		err = issue(*issueTenant, *issueName, *issueScopes, *issueTTL, *issueDB, *issueJSON)
	case "hash":
		hashCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		err = hash(*hashKey)
	case "migrate":
		migrateCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		err = migrate(*migrateDB)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`keygen - Manage schemagate API keys

Usage:
  keygen <command> [flags]

Commands:
  issue     Generate a key and (optionally) store its hash in api_tokens
  hash      Print the lookup hash of an existing key
  migrate   Create or update the api_tokens table

Examples:
  # Generate a key and print the hash without touching a database
  keygen issue -database-url ""

  # Issue a key for a tenant that expires in 30 days
  keygen issue -tenant-id "550e8400-e29b-41d4-a716-446655440000" -ttl 720h

  # Hash a key read from stdin
  echo "$KEY" | keygen hash

Use "keygen <command> -h" for more information about a command.`)
}

// generateKey returns a new credential in the format ParseCredential accepts.
func generateKey() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return models.CredentialPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}

func issue(tenantID, name, scopes string, ttl time.Duration, databaseURL string, jsonOutput bool) error {
	tenant := uuid.New()
	if tenantID != "" {
		parsed, err := uuid.Parse(tenantID)
		if err != nil {
			return fmt.Errorf("invalid tenant-id %q: %w", tenantID, err)
		}
		tenant = parsed
	}

	key, err := generateKey()
	if err != nil {
		return err
	}
	out := keyOutput{
		Key:      key,
		KeyHash:  models.HashKey(key),
		TenantID: tenant.String(),
		Scopes:   s.SplitList(scopes),
	}
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl).UTC()
		expiresAt = &t
		out.ExpiresAt = t.Format(time.RFC3339)
	}

	if databaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pool, err := database.New(ctx, database.DefaultConfig(databaseURL))
		if err != nil {
			return err
		}
		defer pool.Close() //nolint:errcheck // process exits next

		err = pool.DB().QueryRowContext(ctx, insertTokenQuery,
			tenant.String(), name, out.KeyHash, strings.Join(out.Scopes, ","), nullTime(expiresAt),
		).Scan(&out.TokenID)
		if err != nil {
			return fmt.Errorf("insert api token: %w", err)
		}
	}

	if jsonOutput {
		return printJSON(out)
	}
	fmt.Println("API Key")
	fmt.Println("=======")
	fmt.Printf("Tenant ID:   %s\n", out.TenantID)
	fmt.Printf("Scopes:      %v\n", out.Scopes)
	if out.ExpiresAt != "" {
		fmt.Printf("Expires At:  %s\n", out.ExpiresAt)
	}
	if out.TokenID != "" {
		fmt.Printf("Token ID:    %s\n", out.TokenID)
	}
	fmt.Printf("Key Hash:    %s\n", out.KeyHash)
	fmt.Println()
	fmt.Println("Key (shown once, store it now):")
	fmt.Println(out.Key)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <key>\" http://localhost:8080/extract ...")
	return nil
}

func hash(key string) error {
	if key == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read key from stdin: %w", err)
		}
		key = line
	}
	cred, err := models.ParseCredential(strings.TrimSpace(key))
	if err != nil {
		return err
	}
	fmt.Println(cred.Hash())
	return nil
}

func migrate(databaseURL string) error {
	if databaseURL == "" {
		return errors.New("database-url is required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.New(ctx, database.DefaultConfig(databaseURL))
	if err != nil {
		return err
	}
	defer pool.Close() //nolint:errcheck // process exits next

	if err := migrations.Up(ctx, pool.DB()); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	fmt.Println("migrations applied")
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
