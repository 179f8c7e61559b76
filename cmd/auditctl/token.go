package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	jwttoken "audittrail/internal/jwt_token"
	"audittrail/internal/platform/config"
	id "audittrail/pkg/domain"
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	UserID    string            `json:"user_id"`
	ExpiresIn string            `json:"expires_in"`
	Usage     map[string]string `json:"usage"`
}

func tokenCmd() *cobra.Command {
	var (
		userID string
		scopes []string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin API access token signed with JWT_SIGNING_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			user := id.UserID(uuid.New())
			if userID != "" {
				if user, err = id.ParseUserID(userID); err != nil {
					return fmt.Errorf("--user must be a UUID: %w", err)
				}
			}
			if ttl <= 0 {
				ttl = cfg.TokenTTL
			}

			svc := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTAudience, ttl)
			token, err := svc.GenerateAccessToken(principalContext(cmd), user, scopes...)
			if err != nil {
				return err
			}
			return printJSON(cmd, tokenOutput{
				Token:     token,
				Type:      "Bearer",
				UserID:    user.String(),
				ExpiresIn: ttl.String(),
				Usage: map[string]string{
					"curl": fmt.Sprintf("curl -H 'Authorization: Bearer %s' http://localhost%s/admin/tenants", token, cfg.HTTPAddr),
				},
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID (UUID); generated when empty")
	cmd.Flags().StringSliceVar(&scopes, "scopes", nil, "comma-separated scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime; defaults to TOKEN_TTL")
	return cmd
}
