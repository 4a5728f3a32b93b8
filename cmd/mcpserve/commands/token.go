package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Bazilio-san/fa-mcp-sdk-sub001/internal/cli/output"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/internal/cli/prompt"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/auth"
	"github.com/Bazilio-san/fa-mcp-sdk-sub001/pkg/config"
)

var (
	tokenUser   string
	tokenTTL    time.Duration
	tokenKey    string
	tokenOutput string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue authentication tokens",
	Long: `Issue authentication tokens offline, without a running server.

Encrypted tokens are issued with the jwtToken encrypt key from the
configuration (or --key, or an interactive prompt). Permanent tokens are
generated locally and must be added to webServer.auth.permanentServerTokens
before they are accepted.`,
}

var tokenJWTCmd = &cobra.Command{
	Use:   "jwt",
	Short: "Issue an encrypted bearer token",
	Long: `Issue an encrypted (JWE) bearer token.

Examples:
  # Issue a 24h token for alice using the configured encrypt key
  mcpserve token jwt --user alice

  # Issue a 30-day token with an explicit key
  mcpserve token jwt --user ci-bot --ttl 720h --key s3cr3t`,
	RunE: runTokenJWT,
}

var tokenPermanentCmd = &cobra.Command{
	Use:   "permanent",
	Short: "Generate a permanent server token",
	RunE:  runTokenPermanent,
}

func init() {
	tokenJWTCmd.Flags().StringVar(&tokenUser, "user", "", "User the token identifies (required)")
	tokenJWTCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	tokenJWTCmd.Flags().StringVar(&tokenKey, "key", "", "Encrypt key (default: jwtToken.encryptKey from config)")
	_ = tokenJWTCmd.MarkFlagRequired("user")

	tokenCmd.PersistentFlags().StringVarP(&tokenOutput, "output", "o", "table", "Output format (table|json)")

	tokenCmd.AddCommand(tokenJWTCmd)
	tokenCmd.AddCommand(tokenPermanentCmd)
}

func runTokenJWT(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(tokenOutput)
	if err != nil {
		return err
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	key := tokenKey
	if key == "" {
		key = cfg.WebServer.Auth.JWTToken.EncryptKey
	}
	if key == "" {
		key, err = prompt.Secret("Encrypt key")
		if err != nil {
			return err
		}
	}

	codec := auth.NewTokenCodec(key)
	if codec == nil {
		return errors.New("encrypt key is empty")
	}

	expiresAt := time.Now().Add(tokenTTL)
	payload := &auth.TokenPayload{
		User:   tokenUser,
		Expire: expiresAt.UnixMilli(),
	}
	if cfg.WebServer.Auth.JWTToken.CheckMCPName {
		payload.Service = cfg.Name
	}

	token, err := codec.Encrypt(payload)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	if format == output.FormatJSON {
		return output.PrintJSON(os.Stdout, map[string]any{
			"token":     token,
			"user":      tokenUser,
			"expiresAt": expiresAt.UTC().Format(time.RFC3339),
		})
	}

	return output.SimpleTable(os.Stdout, [][2]string{
		{"User", tokenUser},
		{"Expires", expiresAt.UTC().Format(time.RFC3339)},
		{"Token", token},
	})
}

func runTokenPermanent(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(tokenOutput)
	if err != nil {
		return err
	}

	token := uuid.NewString()

	if format == output.FormatJSON {
		return output.PrintJSON(os.Stdout, map[string]string{"token": token})
	}

	fmt.Println(token)
	fmt.Println("\nAdd it to the configuration to activate it:")
	fmt.Println("  webServer.auth.permanentServerTokens:")
	fmt.Printf("    - %s\n", token)
	return nil
}
