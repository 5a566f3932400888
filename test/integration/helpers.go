//go:build integration
// +build integration

package integration

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	AppID      string
	AppSecret  string
	Token      string
	BaseURL    string
	BinaryPath string
	Verbose    bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		AppID:      os.Getenv("PCO_APP_ID"),
		AppSecret:  os.Getenv("PCO_APP_SECRET"),
		Token:      os.Getenv("PCO_TOKEN"),
		BaseURL:    os.Getenv("PCO_BASE_URL"),
		BinaryPath: getBinaryPath(),
		Verbose:    os.Getenv("PCO_VERBOSE") == "true",
	}
}

// getBinaryPath determines the path to the pco binary
func getBinaryPath() string {
	if path := os.Getenv("PCO_BINARY_PATH"); path != "" {
		return path
	}

	// Try common locations
	candidates := []string{
		"../../pco",
		"./pco",
		"../pco",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "pco" // Fallback to PATH
}

// HasCredentials reports whether the config carries usable API credentials
func (config *TestConfig) HasCredentials() bool {
	return config.Token != "" || (config.AppID != "" && config.AppSecret != "")
}

// SkipIfMissingConfig skips test if required config is missing
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	if !config.HasCredentials() {
		t.Skip("PCO_APP_ID/PCO_APP_SECRET or PCO_TOKEN not set, skipping integration test")
	}

	if _, err := os.Stat(config.BinaryPath); os.IsNotExist(err) {
		t.Skipf("pco binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// CommandRunner provides utilities for running pco commands. Each runner gets
// its own HOME directory, so config saved by one test never leaks into
// another or in from the host machine.
type CommandRunner struct {
	config  *TestConfig
	t       *testing.T
	homeDir string
}

// NewCommandRunner creates a new command runner
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	return &CommandRunner{
		config:  config,
		t:       t,
		homeDir: t.TempDir(),
	}
}

// Run executes a pco command with credentials from the test config
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.run("", append(args, runner.credentialArgs()...)...)
}

// RunBare executes a pco command without injecting any credentials
func (runner *CommandRunner) RunBare(args ...string) (stdout, stderr string, err error) {
	return runner.run("", args...)
}

// RunWithInput executes a pco command with stdin input
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	return runner.run(input, append(args, runner.credentialArgs()...)...)
}

func (runner *CommandRunner) run(input string, args ...string) (string, string, error) {
	cmd := exec.Command(runner.config.BinaryPath, args...)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Env = runner.commandEnv()

	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(args, " "))
	}

	err := cmd.Run()
	stdout := stdoutBuf.String()
	stderr := stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// commandEnv builds the subprocess environment. Host PCO_* variables are
// stripped so credentials only reach the command through flags or through the
// config file under the runner's HOME.
func (runner *CommandRunner) commandEnv() []string {
	env := []string{"HOME=" + runner.homeDir}

	for _, entry := range os.Environ() {
		if strings.HasPrefix(entry, "PCO_") || strings.HasPrefix(entry, "HOME=") {
			continue
		}

		env = append(env, entry)
	}

	return env
}

// credentialArgs returns the flags that authenticate a command
func (runner *CommandRunner) credentialArgs() []string {
	var args []string

	if runner.config.Token != "" {
		args = append(args, "--token", runner.config.Token)
	} else {
		args = append(args, "--app-id", runner.config.AppID, "--app-secret", runner.config.AppSecret)
	}

	if runner.config.BaseURL != "" {
		args = append(args, "--base-url", runner.config.BaseURL)
	}

	return args
}

// CleanupPerson attempts to delete a test person
func (runner *CommandRunner) CleanupPerson(personID string) {
	if personID == "" {
		return
	}

	stdout, stderr, err := runner.Run("people", "delete", personID, "--force")
	if err != nil && runner.config.Verbose {
		runner.t.Logf("Cleanup warning for person %s: %s\nStderr: %s", personID, stdout, stderr)
	}
}

// GenerateTestName creates a unique test resource name
func GenerateTestName(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().Unix())
}

// ExtractCreatedID pulls the resource ID out of a create command's
// confirmation line, which ends with "with ID <id>"
func ExtractCreatedID(output string) string {
	fields := strings.Fields(strings.TrimSpace(output))
	if len(fields) == 0 {
		return ""
	}

	return fields[len(fields)-1]
}

// AssertJSONOutput verifies command output is valid JSON
func AssertJSONOutput(t *testing.T, output string) {
	// Basic JSON validation
	output = strings.TrimSpace(output)
	if !strings.HasPrefix(output, "{") && !strings.HasPrefix(output, "[") {
		t.Errorf("Output does not appear to be JSON: %s", output)
	}
}

// AssertYAMLOutput verifies command output is valid YAML
func AssertYAMLOutput(t *testing.T, output string) {
	// Basic YAML validation
	output = strings.TrimSpace(output)
	if strings.Contains(output, "---") || strings.Contains(output, ":") {
		return // Looks like YAML
	}

	t.Errorf("Output does not appear to be YAML: %s", output)
}
