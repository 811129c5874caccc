package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/HerbHall/runstats/internal/auth"
	"github.com/HerbHall/runstats/internal/config"
)

// runToken issues a bearer token signed with the configured auth.jwt_secret.
func runToken(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(w)
	configPath := fs.String("config", "", "path to configuration file")
	subject := fs.String("subject", "cli", "token subject")
	scope := fs.String("scope", auth.ScopeWrite, "token scope (read or write)")
	ttl := fs.Duration("ttl", 0, "token lifetime (default auth.token_ttl)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}
	return issueToken(w, cfg.Auth, *subject, *scope, *ttl)
}

func issueToken(w io.Writer, cfg auth.Config, subject, scope string, ttl time.Duration) error {
	if !cfg.Enabled() {
		return errors.New("auth.jwt_secret is not configured")
	}
	if scope != auth.ScopeRead && scope != auth.ScopeWrite {
		return fmt.Errorf("unknown scope %q", scope)
	}
	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)
	token, err := tokens.IssueToken(subject, scope, ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
