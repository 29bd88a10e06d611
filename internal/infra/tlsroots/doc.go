// Package tlsroots builds TLS client configurations for rediss://
// endpoints.
//
// Pool assembles the trusted CA set from system roots plus custom PEM
// bundles. Watcher hot-reloads a client certificate pair from disk so
// long-running processes pick up rotated certificates without a
// restart; the rotation is applied per handshake through
// GetClientCertificate.
package tlsroots
