// Package middleware provides SnapshotStore decorators that protect archived render
// variables: masking of sensitive names and AES-GCM encryption with key rotation.
package middleware
