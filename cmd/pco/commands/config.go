package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/steeplehq/pco-go/internal/auth"
	"github.com/steeplehq/pco-go/internal/client"
	"github.com/steeplehq/pco-go/internal/constants"
	internalhttp "github.com/steeplehq/pco-go/internal/http"
	"github.com/steeplehq/pco-go/pkg/pco"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration.
type Config struct {
	// API endpoints. BaseURL defaults to the production People API and
	// TokenURL is derived from it when unset.
	BaseURL  string `json:"base_url,omitempty"  yaml:"base_url,omitempty"`
	TokenURL string `json:"token_url,omitempty" yaml:"token_url,omitempty"`

	// Personal access token credentials, sent as HTTP Basic auth.
	AppID     string `json:"app_id,omitempty"     yaml:"app_id,omitempty"`
	AppSecret string `json:"app_secret,omitempty" yaml:"app_secret,omitempty"`

	// OAuth2 credentials. The refresh token enables automatic renewal.
	Token          string     `json:"token,omitempty"            yaml:"token,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
	RefreshToken   string     `json:"refresh_token,omitempty"    yaml:"refresh_token,omitempty"`
	LastRefreshed  *time.Time `json:"last_refreshed,omitempty"   yaml:"last_refreshed,omitempty"`

	// Global settings
	Output  string `json:"output"   yaml:"output"`
	NoColor bool   `json:"no_color" yaml:"no_color"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage PCO CLI configuration including credentials and settings",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with sensitive values masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			rendered, err := renderStructured(maskedConfig(config))
			if rendered {
				return err
			}

			return displayConfigTable(config)
		},
	}
}

// maskedConfig returns a copy safe to print.
func maskedConfig(config *Config) *Config {
	masked := *config
	if masked.AppSecret != "" {
		masked.AppSecret = Masked
	}

	if masked.Token != "" {
		masked.Token = Masked
	}

	if masked.RefreshToken != "" {
		masked.RefreshToken = Masked
	}

	return &masked
}

func displayConfigTable(config *Config) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	_ = table.Append("base_url", valueOrDefault(config.BaseURL, pco.DefaultBaseURL+" (default)"))
	_ = table.Append("token_url", valueOrDefault(config.TokenURL, "derived from base_url"))
	_ = table.Append("app_id", valueOrDefault(config.AppID, NotAvailable))
	_ = table.Append("app_secret", maskIfSet(config.AppSecret))
	_ = table.Append("token", maskIfSet(config.Token))
	_ = table.Append("refresh_token", maskIfSet(config.RefreshToken))

	if config.TokenExpiresAt != nil {
		_ = table.Append("token_expires_at", config.TokenExpiresAt.Format(dateTimeFormat))
	}

	if config.LastRefreshed != nil {
		_ = table.Append("last_refreshed", config.LastRefreshed.Format(dateTimeFormat))
	}

	_ = table.Append("output", valueOrDefault(config.Output, "table"))

	_ = table.Render()

	return nil
}

func valueOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

func maskIfSet(value string) string {
	if value == "" {
		return NotAvailable
	}

	return Masked
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a specific configuration value and persist it to the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(args[0], args[1])
		},
	}
}

func setConfigValue(key, value string) error {
	config := loadConfig()

	switch key {
	case "base_url":
		config.BaseURL = value
	case "token_url":
		config.TokenURL = value
	case "app_id":
		config.AppID = value
	case "app_secret":
		config.AppSecret = value
	case "token":
		config.Token = value
	case "refresh_token":
		config.RefreshToken = value
	case "output":
		config.Output = value
	default:
		return fmt.Errorf("%w: %s (valid keys: base_url, token_url, app_id, app_secret, token, refresh_token, output)", ErrConfigKeyUnknown, key)
	}

	err := saveConfigStruct(config)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Set %s\n", key)

	return nil
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a specific configuration value from the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(args[0], "")
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove the config file and all stored settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := viper.ConfigFileUsed()
			if configFile == "" {
				home, _ := os.UserHomeDir()
				configFile = filepath.Join(home, ".pco", "config.yml")
			}

			err := os.Remove(configFile)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			_, _ = os.Stdout.WriteString("Cleared all configuration\n")

			return nil
		},
	}
}

func loadConfig() *Config {
	config := &Config{
		BaseURL:      viper.GetString("base_url"),
		TokenURL:     viper.GetString("token_url"),
		AppID:        viper.GetString("app_id"),
		AppSecret:    viper.GetString("app_secret"),
		Token:        viper.GetString("token"),
		RefreshToken: viper.GetString("refresh_token"),
		Output:       viper.GetString("output"),
		NoColor:      viper.GetBool("no_color"),
	}

	if expiresAt := viper.GetTime("token_expires_at"); !expiresAt.IsZero() {
		config.TokenExpiresAt = &expiresAt
	}

	if refreshed := viper.GetTime("last_refreshed"); !refreshed.IsZero() {
		config.LastRefreshed = &refreshed
	}

	return config
}

func saveConfigStruct(config *Config) error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}

		configDir := filepath.Join(home, ".pco")

		err = os.MkdirAll(configDir, constants.ConfigDirPerm)
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		configFile = filepath.Join(configDir, "config.yml")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateClient builds a People API client from the stored configuration.
// OAuth2 credentials with a refresh token get a persisting token manager so
// rotated tokens survive the process.
func CreateClient() (pco.Client, error) {
	return createClientFromConfig(loadConfig())
}

func createClientFromConfig(config *Config) (pco.Client, error) {
	if config.Token == "" && (config.AppID == "" || config.AppSecret == "") {
		return nil, ErrNoCredentials
	}

	clientConfig := buildClientConfig(config)

	if config.Token != "" && config.RefreshToken != "" {
		pcoClient, err := client.NewWithTokenManager(clientConfig, createPersistingTokenManager(config))
		if err != nil {
			return nil, fmt.Errorf("creating client: %w", err)
		}

		return pcoClient, nil
	}

	pcoClient, err := client.New(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("creating client: %w", err)
	}

	return pcoClient, nil
}

func buildClientConfig(config *Config) *pco.Config {
	clientConfig := &pco.Config{
		BaseURL:     config.BaseURL,
		AccessToken: config.Token,
		AppID:       config.AppID,
		AppSecret:   config.AppSecret,
		TokenURL:    config.TokenURL,
	}

	if viper.GetBool("verbose") {
		clientConfig.Callbacks.OnRetry = func(typedErr *pco.TypedError, attempt int) {
			_, _ = fmt.Fprintf(os.Stderr, "Retrying after %s error (attempt %d)\n", typedErr.Category, attempt)
		}
	}

	return clientConfig
}

func createPersistingTokenManager(config *Config) internalhttp.TokenManager {
	oauth2Config := &auth.OAuth2Config{
		TokenURL:     resolveTokenURL(config),
		AccessToken:  config.Token,
		RefreshToken: config.RefreshToken,
	}

	return auth.NewConfigTokenManager(oauth2Config, NewConfigPersister())
}

func resolveTokenURL(config *Config) string {
	if config.TokenURL != "" {
		return config.TokenURL
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = pco.DefaultBaseURL
	}

	return strings.TrimSuffix(baseURL, "/") + "/oauth/token"
}
