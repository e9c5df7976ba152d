// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package secrets keeps API keys out of the config file. Values are held in
// the OS keyring and referenced from config as keyring://service/key.
package secrets

// ServiceName is the keyring service the journal stores its secrets under.
const ServiceName = "journal"

// Store provides secret storage.
type Store interface {
	// Set saves value under service and key, replacing any previous value.
	Set(service, key, value string) error
	// Get returns the value for service and key. A missing secret has code
	// secret.store.not_found.
	Get(service, key string) (string, error)
	Delete(service, key string) error
	// List returns the key names stored under service.
	List(service string) ([]string, error)
}
