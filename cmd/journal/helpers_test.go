// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/journal/internal/config"
	"github.com/sigil-dev/journal/internal/secrets"
	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

// mockSecretStore is an in-memory secrets.Store for testing.
type mockSecretStore struct {
	data map[string]string // key -> value, service is always "journal"
}

func newMockSecretStore(keys ...string) *mockSecretStore {
	m := &mockSecretStore{data: make(map[string]string)}
	for _, k := range keys {
		m.data[k] = "redacted"
	}
	return m
}

func (m *mockSecretStore) Set(_, key, value string) error {
	m.data[key] = value
	return nil
}

func (m *mockSecretStore) Get(_, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", sigilerr.Errorf(sigilerr.CodeSecretNotFound, "not found")
	}
	return v, nil
}

func (m *mockSecretStore) Delete(_, key string) error {
	if _, ok := m.data[key]; !ok {
		return sigilerr.Errorf(sigilerr.CodeSecretNotFound, "not found")
	}
	delete(m.data, key)
	return nil
}

func (m *mockSecretStore) List(_ string) ([]string, error) {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// useSecretStore swaps secretStoreFactory for the duration of the test.
func useSecretStore(t *testing.T, s secrets.Store) {
	t.Helper()
	old := secretStoreFactory
	secretStoreFactory = func() secrets.Store { return s }
	t.Cleanup(func() { secretStoreFactory = old })
}

// testEnv is an isolated home directory with a hash-provider config.
type testEnv struct {
	home    string
	config  string
	dataDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	useSecretStore(t, newMockSecretStore())

	env := &testEnv{
		home:    home,
		config:  filepath.Join(home, "journal.yaml"),
		dataDir: filepath.Join(home, "data"),
	}
	cfg := "storage:\n  data_dir: " + env.dataDir + "\n" +
		"embedding:\n  provider: hash\n" +
		"vector:\n  workers: 1\n" +
		"logging:\n  level: error\n"
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o600))
	return env
}

// run executes the CLI with the env's config and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runStdin(t, "", args...)
}

func (e *testEnv) runStdin(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "journal %s", strings.Join(args, " "))
	return out
}

// loadConfigFor runs loadConfig against a config file holding content.
func loadConfigFor(t *testing.T, env *testEnv, content string) (*config.Config, error) {
	t.Helper()
	path := filepath.Join(env.home, "other.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	root := NewRootCmd()
	require.NoError(t, root.PersistentFlags().Set("config", path))
	return loadConfig(root)
}
