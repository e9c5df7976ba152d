// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sigilerr "github.com/sigil-dev/journal/pkg/errors"
)

func runSecretCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"secret"}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestSecretList(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"empty store", nil, "No secrets stored.\n"},
		{"single key", []string{"openai-api-key"}, "openai-api-key\n"},
		{"multiple keys", []string{"openai-api-key", "google-api-key"}, "google-api-key\nopenai-api-key\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useSecretStore(t, newMockSecretStore(tt.keys...))

			out, err := runSecretCmd(t, "", "list")
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSecretSet(t *testing.T) {
	store := newMockSecretStore()
	useSecretStore(t, store)

	out, err := runSecretCmd(t, "sk-from-stdin\n", "set", "openai-api-key")
	require.NoError(t, err)
	assert.Contains(t, out, "keyring://journal/openai-api-key")
	assert.Equal(t, "sk-from-stdin", store.data["openai-api-key"])
	assert.NotContains(t, out, "sk-from-stdin")

	_, err = runSecretCmd(t, "", "set", "google-api-key", "--value", "g-key")
	require.NoError(t, err)
	assert.Equal(t, "g-key", store.data["google-api-key"])

	_, err = runSecretCmd(t, "\n", "set", "empty")
	require.Error(t, err)
	assert.Equal(t, 2, sigilerr.ExitCode(err))
}

func TestSecretDelete(t *testing.T) {
	store := newMockSecretStore("openai-api-key")
	useSecretStore(t, store)

	out, err := runSecretCmd(t, "", "delete", "openai-api-key")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted secret: openai-api-key")
	assert.Empty(t, store.data)

	_, err = runSecretCmd(t, "", "delete", "openai-api-key")
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeSecretNotFound))
	assert.Contains(t, err.Error(), `"openai-api-key" not found`)
	assert.Equal(t, 3, sigilerr.ExitCode(err))
}

func TestSecretResolvedInConfig(t *testing.T) {
	env := newTestEnv(t)
	useSecretStore(t, newMockSecretStore())

	cfg, err := loadConfigFor(t, env, "embedding:\n  provider: openai\n  api_key: keyring://journal/openai-api-key\n")
	require.Error(t, err, "unresolved keyring reference fails the load")
	assert.Nil(t, cfg)

	store := newMockSecretStore()
	store.data["openai-api-key"] = "sk-resolved"
	useSecretStore(t, store)
	cfg, err = loadConfigFor(t, env, "embedding:\n  provider: openai\n  api_key: keyring://journal/openai-api-key\n")
	require.NoError(t, err)
	assert.Equal(t, "sk-resolved", cfg.Embedding.APIKey)
}
