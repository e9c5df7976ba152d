// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/sigil-dev/journal/internal/config"
	"github.com/sigil-dev/journal/internal/embedding"
	"github.com/sigil-dev/journal/internal/secrets"
	"github.com/sigil-dev/journal/internal/store"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// ProviderType names an embedding provider offered by the wizard.
type ProviderType string

const (
	ProviderHash   ProviderType = "hash"
	ProviderOpenAI ProviderType = "openai"
	ProviderGoogle ProviderType = "google"
)

var supportedProviders = []ProviderType{ProviderHash, ProviderOpenAI, ProviderGoogle}

var providerHints = map[ProviderType]string{
	ProviderHash:   "offline, no API key, keyword-level similarity",
	ProviderOpenAI: "text-embedding-3-small, needs an OpenAI API key",
	ProviderGoogle: "text-embedding-004, needs a Gemini API key",
}

func (p ProviderType) needsKey() bool { return p != ProviderHash }

// initWizardStep tracks which step of the wizard is active.
type initWizardStep int

const (
	stepProvider    initWizardStep = iota // select provider
	stepAPIKey                            // enter API key
	stepValidateKey                       // validating key (spinner)
	stepWriting                           // writing config and database
	stepDone                              // wizard complete
	stepError                             // terminal error
)

// initResult holds the collected wizard configuration.
type initResult struct {
	Provider ProviderType
	APIKey   string
	DataDir  string
}

type (
	validationSuccessMsg struct{}
	validationErrorMsg   struct{ err error }
	initWrittenMsg       struct{ path string }
)

var promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

// validateKey checks an API key with one embedding request. Tests replace it.
var validateKey = func(ctx context.Context, p ProviderType, key string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	gate, err := newRegistry().Gate(embedding.Config{Provider: string(p), APIKey: key})
	if err != nil {
		return err
	}
	_, err = gate.Embed(ctx, "journal init probe")
	return err
}

// initModel is the bubbletea model for the init wizard.
type initModel struct {
	step          initWizardStep
	providerIdx   int
	apiKeyInput   textinput.Model
	spinner       spinner.Model
	result        initResult
	validationErr string
	configPath    string
	secretStore   secrets.Store
	force         bool
	errFinal      error
}

func newInitModel(secretStore secrets.Store, configPath, dataDir string) initModel {
	apiKey := textinput.New()
	apiKey.Placeholder = "paste API key here"
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return initModel{
		step:        stepProvider,
		apiKeyInput: apiKey,
		spinner:     sp,
		result:      initResult{DataDir: dataDir},
		configPath:  configPath,
		secretStore: secretStore,
	}
}

func (m initModel) Init() tea.Cmd {
	return nil
}

func (m initModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.step {
		case stepProvider:
			return m.handleProviderKey(msg)
		case stepAPIKey:
			return m.handleAPIKeyInput(msg)
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case validationSuccessMsg:
		m.step = stepWriting
		return m, m.writeCmd()

	case validationErrorMsg:
		m.validationErr = msg.err.Error()
		m.step = stepAPIKey
		m.apiKeyInput.Focus()
		return m, nil

	case initWrittenMsg:
		m.step = stepDone
		m.configPath = msg.path
		return m, tea.Quit

	case error:
		m.step = stepError
		m.errFinal = msg
		return m, tea.Quit
	}

	if m.step == stepAPIKey {
		var cmd tea.Cmd
		m.apiKeyInput, cmd = m.apiKeyInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m initModel) handleProviderKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.providerIdx > 0 {
			m.providerIdx--
		}
	case "down", "j":
		if m.providerIdx < len(supportedProviders)-1 {
			m.providerIdx++
		}
	case "enter":
		m.result.Provider = supportedProviders[m.providerIdx]
		m.validationErr = ""
		if !m.result.Provider.needsKey() {
			m.step = stepWriting
			return m, tea.Batch(m.spinner.Tick, m.writeCmd())
		}
		m.step = stepAPIKey
		m.apiKeyInput.SetValue("")
		m.apiKeyInput.Focus()
		return m, textinput.Blink
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m initModel) handleAPIKeyInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		key := strings.TrimSpace(m.apiKeyInput.Value())
		if key == "" {
			m.validationErr = "API key must not be empty"
			return m, nil
		}
		m.result.APIKey = key
		m.validationErr = ""
		m.step = stepValidateKey
		return m, tea.Batch(m.spinner.Tick, validateKeyCmd(m.result.Provider, key))
	case "esc":
		m.step = stepProvider
		m.validationErr = ""
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.apiKeyInput, cmd = m.apiKeyInput.Update(msg)
	return m, cmd
}

func (m initModel) writeCmd() tea.Cmd {
	result, secretStore, path, force := m.result, m.secretStore, m.configPath, m.force
	return func() tea.Msg {
		if err := writeInit(result, secretStore, path, force); err != nil {
			return err
		}
		return initWrittenMsg{path: path}
	}
}

func validateKeyCmd(p ProviderType, key string) tea.Cmd {
	return func() tea.Msg {
		if err := validateKey(context.Background(), p, key); err != nil {
			return validationErrorMsg{err: err}
		}
		return validationSuccessMsg{}
	}
}

func (m initModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("  journal setup  ") + "\n\n")

	switch m.step {
	case stepProvider:
		b.WriteString(promptStyle.Render("Choose an embedding provider for semantic search") + "\n\n")
		for i, p := range supportedProviders {
			line := fmt.Sprintf("%-8s %s", p, providerHints[p])
			if i == m.providerIdx {
				b.WriteString(successStyle.Bold(true).Render("  > "+line) + "\n")
			} else {
				b.WriteString(dimStyle.Render("    "+line) + "\n")
			}
		}
		b.WriteString("\n" + dimStyle.Render("↑/↓ to navigate  enter to select  q to quit"))

	case stepAPIKey:
		b.WriteString(promptStyle.Render(string(m.result.Provider)+" API key") + "\n\n")
		b.WriteString(m.apiKeyInput.View() + "\n")
		if m.validationErr != "" {
			b.WriteString("\n" + errorStyle.Render("  "+m.validationErr) + "\n")
		}
		b.WriteString("\n" + dimStyle.Render("enter to continue  esc to go back  ctrl+c to quit"))

	case stepValidateKey:
		b.WriteString(m.spinner.View() + " Checking " + string(m.result.Provider) + " API key…\n")

	case stepWriting:
		b.WriteString(m.spinner.View() + " Writing config and creating the database…\n")

	case stepDone:
		b.WriteString(successStyle.Render("  Setup complete!  ") + "\n\n")
		b.WriteString(dimStyle.Render("Config written to: "+m.configPath) + "\n\n")
		b.WriteString("Run " + promptStyle.Render("journal add \"first entry\"") + " to get started.\n")
		b.WriteString("Run " + promptStyle.Render("journal doctor") + " to verify setup.\n")

	case stepError:
		b.WriteString(errorStyle.Render("Setup failed: "+m.errFinal.Error()) + "\n")
	}

	return boxStyle.Render(b.String())
}

// GenerateConfigYAML produces a journal.yaml for the wizard result. API keys
// are referenced via keyring:// URIs and never written in plain text.
func GenerateConfigYAML(result initResult) string {
	var sb strings.Builder
	sb.WriteString("# journal configuration, generated by journal init\n\n")

	sb.WriteString("storage:\n")
	sb.WriteString("  backend: sqlite\n")
	if result.DataDir != "" {
		fmt.Fprintf(&sb, "  data_dir: %q\n", result.DataDir)
	}
	sb.WriteString("\n")

	sb.WriteString("embedding:\n")
	fmt.Fprintf(&sb, "  provider: %s\n", result.Provider)
	if result.Provider.needsKey() {
		fmt.Fprintf(&sb, "  api_key: %q\n", secrets.KeyringURI(apiKeyName(result.Provider)))
	}
	sb.WriteString("\n")

	sb.WriteString("vector:\n")
	sb.WriteString("  similarity_threshold: 0.3\n\n")

	sb.WriteString("logging:\n")
	sb.WriteString("  level: info\n")
	sb.WriteString("  format: text\n")

	return sb.String()
}

func apiKeyName(p ProviderType) string {
	return string(p) + "-api-key"
}

// writeInit stores the API key, writes the config and creates the database.
func writeInit(result initResult, secretStore secrets.Store, cfgPath string, force bool) error {
	if !force {
		if _, err := os.Stat(cfgPath); err == nil {
			return sigilerr.Errorf(sigilerr.CodeConfigInitConflict,
				"config file already exists at %s; use --force to overwrite", cfgPath)
		}
	}

	if result.Provider.needsKey() {
		if err := secretStore.Set(secrets.ServiceName, apiKeyName(result.Provider), result.APIKey); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "creating config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, []byte(GenerateConfigYAML(result)), 0o600); err != nil {
		return sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "writing config to %s: %w", cfgPath, err)
	}

	return createDatabase(result.DataDir)
}

// createDatabase opens and closes the stores so the schema exists.
func createDatabase(dataDir string) error {
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
	}
	entries, vectors, err := openStores(store.StorageConfig{Backend: "sqlite", DataDir: dataDir})
	if err != nil {
		return err
	}
	return sigilerr.Join(vectors.Close(), entries.Close())
}

var openStores = store.Open

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the config file and database",
		Long: `Create journal.yaml and the journal database.

In a terminal this runs a short wizard to choose an embedding provider.
Pass --provider to configure without the wizard. API keys are stored in
the OS keyring and referenced via keyring:// URIs; they are never written
to the config file.`,
		RunE: runInit,
	}

	cmd.Flags().String("provider", "", "embedding provider (hash, openai, google); skips the wizard")
	cmd.Flags().String("api-key", "", "API key for --provider (read from stdin when omitted)")
	cmd.Flags().Bool("force", false, "overwrite an existing config file")

	return cmd
}

// configPathForWrite returns the config path init writes to. Tests override it.
var configPathForWrite = config.DefaultConfigPath

func runInit(cmd *cobra.Command, _ []string) error {
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	if cfgPath == "" {
		var err error
		if cfgPath, err = configPathForWrite(); err != nil {
			return err
		}
	}
	dataDir, _ := cmd.Root().PersistentFlags().GetString("data-dir")
	force, _ := cmd.Flags().GetBool("force")
	provider, _ := cmd.Flags().GetString("provider")
	secretStore := secretStoreFactory()

	if provider != "" {
		return runInitFlags(cmd, initResult{Provider: ProviderType(provider), DataDir: dataDir}, secretStore, cfgPath, force)
	}

	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !isTerminal(f) {
		return sigilerr.New(sigilerr.CodeCLIInvalidArgument,
			"journal init: not an interactive terminal; pass --provider to configure non-interactively")
	}

	m := newInitModel(secretStore, cfgPath, dataDir)
	m.force = force

	finalModel, err := tea.NewProgram(m, tea.WithInput(f), tea.WithOutput(cmd.OutOrStdout())).Run()
	if err != nil {
		return sigilerr.Errorf(sigilerr.CodeCLISetupFailure, "init wizard error: %w", err)
	}
	fm, ok := finalModel.(initModel)
	if !ok {
		return sigilerr.New(sigilerr.CodeCLISetupFailure, "unexpected model type after wizard")
	}
	if fm.errFinal != nil {
		return fm.errFinal
	}
	return nil
}

func runInitFlags(cmd *cobra.Command, result initResult, secretStore secrets.Store, cfgPath string, force bool) error {
	if !lo.Contains(supportedProviders, result.Provider) {
		return sigilerr.Errorf(sigilerr.CodeCLIInvalidArgument,
			"unknown provider %q: use hash, openai or google", result.Provider)
	}
	if result.Provider.needsKey() {
		key, _ := cmd.Flags().GetString("api-key")
		if key == "" {
			var err error
			if key, err = contentArg(cmd, nil); err != nil {
				return err
			}
		}
		if key == "" {
			return sigilerr.Errorf(sigilerr.CodeCLIInvalidArgument, "provider %s needs --api-key or a key on stdin", result.Provider)
		}
		result.APIKey = key
	}

	if err := writeInit(result, secretStore, cfgPath, force); err != nil {
		return err
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s config at %s (provider %s)\n",
		successStyle.Render("Wrote"), cfgPath, result.Provider)
	return err
}

// isTerminal reports whether f is a terminal file descriptor.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
