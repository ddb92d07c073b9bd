package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	jwttoken "hearth/internal/jwt_token"
	"hearth/pkg/domain"
)

const (
	devSigningKey   = "dev-secret-key-change-in-production"
	defaultIssuer   = "hearth"
	defaultAudience = "hearth-api"
	defaultTokenTTL = 15 * time.Minute
)

type signingFlags struct {
	key      string
	issuer   string
	audience string
}

func (f *signingFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.key, "signing-key", envOr("JWT_SIGNING_KEY", devSigningKey), "HS256 signing key")
	cmd.Flags().StringVar(&f.issuer, "issuer", envOr("JWT_ISSUER", defaultIssuer), "token issuer")
	cmd.Flags().StringVar(&f.audience, "audience", envOr("JWT_AUDIENCE", defaultAudience), "token audience")
}

func (f *signingFlags) service(ttl time.Duration) *jwttoken.JWTService {
	return jwttoken.NewJWTService(f.key, f.issuer, f.audience, ttl)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "tokengen",
		Short:        "Generate development tokens for the Hearth API",
		SilenceUsage: true,
	}
	root.AddCommand(newPrincipalCmd(), newInspectCmd())
	return root
}

type tokenOutput struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Claims    map[string]any `json:"claims"`
}

func newPrincipalCmd() *cobra.Command {
	var (
		signing      signingFlags
		role         string
		userID       string
		tenantID     string
		tenantStatus string
		ttl          time.Duration
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "principal",
		Short: "Mint a token for a principal",
		Long: "Mint a signed token carrying role and household claims.\n" +
			"Example: tokengen principal --role ADMIN --tenant-id 3f0c...",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := buildPrincipal(role, userID, tenantID, tenantStatus)
			if err != nil {
				return err
			}
			token, expiresAt, err := signing.service(ttl).IssueWithTTL(context.Background(), p, ttl)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			claims := map[string]any{"sub": p.SubjectID.String(), "role": string(p.Role)}
			if !p.TenantID.IsNil() {
				claims["tenant_id"] = p.TenantID.String()
				claims["tenant_status"] = string(p.TenantStatus)
			}
			if asJSON {
				return writeJSON(cmd, tokenOutput{Token: token, ExpiresAt: expiresAt, Claims: claims})
			}
			cmd.Printf("Subject:    %s\n", p.SubjectID)
			cmd.Printf("Role:       %s\n", p.Role)
			if !p.TenantID.IsNil() {
				cmd.Printf("Household:  %s (%s)\n", p.TenantID, p.TenantStatus)
			}
			cmd.Printf("Expires at: %s\n\n", expiresAt.Format(time.RFC3339))
			cmd.Println(token)
			return nil
		},
	}
	signing.bind(cmd)
	cmd.Flags().StringVar(&role, "role", string(domain.RoleMember), "SUPER_ADMIN, ADMIN, PARENT, MEMBER or STAFF")
	cmd.Flags().StringVar(&userID, "user-id", "", "subject user id (UUID), generated if empty")
	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "household id (UUID), required for household roles")
	cmd.Flags().StringVar(&tenantStatus, "tenant-status", string(domain.TenantStatusActive), "household status snapshot")
	cmd.Flags().DurationVar(&ttl, "ttl", defaultTokenTTL, "token lifetime")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func buildPrincipal(rawRole, rawUser, rawTenant, rawStatus string) (*domain.Principal, error) {
	role, ok := domain.ParseRole(strings.ToUpper(strings.TrimSpace(rawRole)))
	if !ok {
		return nil, fmt.Errorf("unknown role %q", rawRole)
	}
	p := &domain.Principal{SubjectID: domain.NewUserID(), Role: role}
	if rawUser != "" {
		id, err := domain.ParseUserID(rawUser)
		if err != nil {
			return nil, fmt.Errorf("invalid --user-id: %w", err)
		}
		p.SubjectID = id
	}

	if role == domain.RoleSuperAdmin {
		if rawTenant != "" {
			return nil, fmt.Errorf("SUPER_ADMIN tokens carry no household")
		}
		return p, nil
	}
	if rawTenant == "" {
		return nil, fmt.Errorf("--tenant-id is required for role %s", role)
	}
	tenant, err := domain.ParseTenantID(rawTenant)
	if err != nil {
		return nil, fmt.Errorf("invalid --tenant-id: %w", err)
	}
	status := domain.TenantStatus(strings.ToUpper(rawStatus))
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown tenant status %q", rawStatus)
	}
	p.TenantID = tenant
	p.TenantStatus = status
	return p, nil
}

func newInspectCmd() *cobra.Command {
	var (
		signing signingFlags
		verify  bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <token>",
		Short: "Decode a token and optionally verify it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(strings.TrimPrefix(args[0], "Bearer "))

			claims := &jwttoken.Claims{}
			if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
				return fmt.Errorf("decode token: %w", err)
			}
			out := map[string]any{"claims": claims}

			if verify {
				p, err := signing.service(defaultTokenTTL).Verify(context.Background(), token)
				if err != nil {
					out["valid"] = false
					out["failure"] = string(jwttoken.KindOf(err))
				} else {
					out["valid"] = true
					out["impersonating"] = p.IsImpersonating()
				}
			}
			return writeJSON(cmd, out)
		},
	}
	signing.bind(cmd)
	cmd.Flags().BoolVar(&verify, "verify", false, "check signature, issuer, audience and expiry")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
