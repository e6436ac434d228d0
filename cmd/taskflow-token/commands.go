// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yaswanth65/task3Backend/lib/authgate"
	"github.com/yaswanth65/task3Backend/lib/service"
	"github.com/yaswanth65/task3Backend/lib/sessiontoken"
	"github.com/yaswanth65/task3Backend/lib/version"
)

const (
	defaultKeyDir          = "/etc/taskflow"
	defaultIngressSocket   = "/run/taskflow/gateway.sock"
	defaultIngressAudience = "taskflow-ingress"
	revokeTimeout          = 10 * time.Second
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskflow-token",
		Short:         "Manage TaskFlow gateway session tokens",
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("key-dir", defaultKeyDir, "directory holding the signing keypair")

	root.AddCommand(
		newKeygenCommand(),
		newMintCommand(),
		newVerifyCommand(),
		newRevokeCommand(),
	)
	return root
}

func newKeygenCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate the Ed25519 token signing keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("key-dir")
			if _, err := sessiontoken.LoadPrivateKey(dir); err == nil && !force {
				return fmt.Errorf("a signing key already exists in %s; use --force to replace it", dir)
			}
			public, private, err := sessiontoken.GenerateKeypair()
			if err != nil {
				return err
			}
			if err := sessiontoken.SaveKeypair(dir, public, private); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s/%s and %s/%s\n",
				dir, sessiontoken.PrivateKeyFile, dir, sessiontoken.PublicKeyFile)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing keypair")
	return cmd
}

func newMintCommand() *cobra.Command {
	var (
		audience string
		ttl      time.Duration
		role     string
		showID   bool
	)
	cmd := &cobra.Command{
		Use:   "mint <user-id>",
		Short: "Mint a signed token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			private, err := loadPrivateKey(cmd)
			if err != nil {
				return err
			}
			token := sessiontoken.New(args[0], audience, time.Now(), ttl)
			token.Role = role
			raw, err := sessiontoken.Mint(private, token)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if showID {
				fmt.Fprintf(out, "id: %s\nexpires: %s\n", token.ID, token.Expires().UTC().Format(time.RFC3339))
			}
			fmt.Fprintln(out, sessiontoken.Encode(raw))
			return nil
		},
	}
	cmd.Flags().StringVar(&audience, "audience", sessiontoken.DefaultAudience, "token audience")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().StringVar(&role, "role", "", "optional role claim")
	cmd.Flags().BoolVar(&showID, "show-id", false, "print the token id and expiry before the token")
	return cmd
}

func newVerifyCommand() *cobra.Command {
	var (
		audience  string
		publicKey string
	)
	cmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Check a token's signature, expiry and audience",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if publicKey == "" {
				dir, _ := cmd.Flags().GetString("key-dir")
				publicKey = filepath.Join(dir, sessiontoken.PublicKeyFile)
			}
			key, err := sessiontoken.LoadPublicKey(publicKey)
			if err != nil {
				return err
			}
			raw, err := sessiontoken.Decode(authgate.BearerCredential(args[0]))
			if err != nil {
				return err
			}
			token, err := sessiontoken.VerifyAudienceAt(key, raw, audience, time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "subject:  %s\n", token.Subject)
			fmt.Fprintf(out, "id:       %s\n", token.ID)
			fmt.Fprintf(out, "audience: %s\n", token.Audience)
			fmt.Fprintf(out, "issued:   %s\n", time.Unix(token.IssuedAt, 0).UTC().Format(time.RFC3339))
			fmt.Fprintf(out, "expires:  %s\n", token.Expires().UTC().Format(time.RFC3339))
			if token.Role != "" {
				fmt.Fprintf(out, "role:     %s\n", token.Role)
			}
			fmt.Fprintf(out, "fingerprint: %s\n", authgate.Fingerprint(args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&audience, "audience", sessiontoken.DefaultAudience, "expected audience")
	cmd.Flags().StringVar(&publicKey, "public-key", "", "public key file (default <key-dir>/"+sessiontoken.PublicKeyFile+")")
	return cmd
}

func newRevokeCommand() *cobra.Command {
	var (
		socket   string
		audience string
	)
	cmd := &cobra.Command{
		Use:   "revoke <token-id>",
		Short: "Revoke a token on a running gateway and disconnect its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokenID := strings.TrimSpace(args[0])
			if tokenID == "" {
				return errors.New("token id is empty")
			}
			private, err := loadPrivateKey(cmd)
			if err != nil {
				return err
			}
			caller := sessiontoken.New("taskflow-token", audience, time.Now(), time.Minute)
			raw, err := sessiontoken.Mint(private, caller)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), revokeTimeout)
			defer cancel()
			var response struct {
				Disconnected int `cbor:"disconnected"`
			}
			client := service.NewClient(socket, raw)
			if err := client.Call(ctx, "revoke", map[string]any{"token_id": tokenID}, &response); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %s; %d connection(s) closed\n", tokenID, response.Disconnected)
			return nil
		},
	}
	cmd.Flags().StringVar(&socket, "socket", defaultIngressSocket, "gateway ingress socket")
	cmd.Flags().StringVar(&audience, "audience", defaultIngressAudience, "ingress token audience")
	return cmd
}

func loadPrivateKey(cmd *cobra.Command) (ed25519.PrivateKey, error) {
	dir, _ := cmd.Flags().GetString("key-dir")
	private, err := sessiontoken.LoadPrivateKey(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no signing key in %s (run keygen first): %w", dir, err)
		}
		return nil, err
	}
	return private, nil
}
