// AngelaMos | 2026
// main.go

// Command devtoken stands in for the identity provider during local
// development. It can generate an ES256 key pair and sign session tokens
// the API will accept when identity.jwks_path points at the generated set.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/notbyai-space/curation-api/internal/auth"
	"github.com/notbyai-space/curation-api/internal/config"
)

func main() {
	configPath := flag.String("config", "", "optional config file")
	genKeys := flag.Bool("gen-keys", false, "write a new key pair and exit")
	subject := flag.String("sub", "", "token subject (random when empty)")
	email := flag.String("email", "", "optional email claim")
	flag.Parse()

	if err := run(*configPath, *genKeys, *subject, *email); err != nil {
		slog.Error("devtoken failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, genKeys bool, subject, email string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		return fmt.Errorf("devtoken refuses to run in production")
	}

	id := cfg.Identity

	if genKeys {
		if err := auth.GenerateKeyPair(id.SigningKeyPath, id.JWKSPath); err != nil {
			return err
		}
		slog.Info("key pair written",
			"private_key", id.SigningKeyPath,
			"jwks", id.JWKSPath,
		)
		return nil
	}

	signer, err := auth.NewSignerFromFile(id.SigningKeyPath, id.Issuer, id.Audience)
	if err != nil {
		return err
	}

	if subject == "" {
		subject = "dev|" + uuid.NewString()
	}

	token, err := signer.Sign(auth.Identity{Subject: subject, Email: email}, id.DevTokenExpire)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
