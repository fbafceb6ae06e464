package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/commerce-assistant/internal/middleware"
)

var (
	tokenTenant  string
	tokenSubject string
	tokenScopes  []string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a tenant token for the chat API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := middleware.ValidateTenantID(tokenTenant); err != nil {
			return err
		}
		if tokenTTL <= 0 {
			return errors.New("ttl must be positive")
		}
		tok, err := middleware.GenerateToken(cfg.JWTSecret, tokenSubject, tokenTenant, tokenScopes, tokenTTL)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenTenant, "tenant", "t", "", "tenant ID (required)")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "widget", "token subject")
	tokenCmd.Flags().StringSliceVar(&tokenScopes, "scope", nil, "granted scopes, e.g. "+middleware.ScopeCatalogWrite)
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	tokenCmd.MarkFlagRequired("tenant")
	rootCmd.AddCommand(tokenCmd)
}
