package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		appID        string
		appSecret    string
		accessToken  string
		refreshToken string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Planning Center",
		Long: `Store Planning Center credentials and verify them against the API.

Use --token for an OAuth2 access token (optionally with --refresh-token for
automatic renewal), or an application ID and secret for a personal access
token. With no flags, the application ID and secret are prompted for.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			if accessToken != "" {
				config.Token = accessToken
				config.RefreshToken = refreshToken
			} else {
				if appID == "" {
					reader := bufio.NewReader(os.Stdin)
					_, _ = os.Stdout.WriteString("Application ID: ")
					appID, _ = reader.ReadString('\n')
					appID = strings.TrimSpace(appID)
				}

				if appID == "" {
					return ErrAppIDRequired
				}

				if appSecret == "" {
					_, _ = os.Stdout.WriteString("Secret: ")

					byteSecret, err := term.ReadPassword(int(syscall.Stdin))
					if err != nil {
						return fmt.Errorf("failed to read secret: %w", err)
					}

					appSecret = string(byteSecret)

					_, _ = os.Stdout.WriteString("\n")
				}

				config.AppID = appID
				config.AppSecret = appSecret
				// Token credentials would shadow the new ones.
				config.Token = ""
				config.RefreshToken = ""
				config.TokenExpiresAt = nil
			}

			// Verify the credentials by fetching the authenticated person.
			client, err := createClientFromConfig(config)
			if err != nil {
				return err
			}

			person, err := client.People().Me(context.Background())
			if err != nil {
				return fmt.Errorf("failed to verify credentials: %w", err)
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "Logged in as %s\n", personDisplayName(&person.Data))

			return nil
		},
	}

	cmd.Flags().StringVar(&appID, "app-id", "", "personal access token application ID")
	cmd.Flags().StringVar(&appSecret, "app-secret", "", "personal access token secret")
	cmd.Flags().StringVarP(&accessToken, "token", "t", "", "OAuth2 access token")
	cmd.Flags().StringVar(&refreshToken, "refresh-token", "", "OAuth2 refresh token")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of Planning Center",
		Long:  "Clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			config.AppID = ""
			config.AppSecret = ""
			config.Token = ""
			config.RefreshToken = ""
			config.TokenExpiresAt = nil
			config.LastRefreshed = nil

			err := saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			_, _ = os.Stdout.WriteString("Successfully logged out\n")

			return nil
		},
	}
}
