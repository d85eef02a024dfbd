package util

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoRandomString(t *testing.T) {
	s1, err := CryptoRandomString(32)
	require.NoError(t, err)
	assert.Len(t, s1, 32)

	// Hex alphabet only
	_, err = hex.DecodeString(s1)
	assert.NoError(t, err)

	s2, err := CryptoRandomString(32)
	require.NoError(t, err)
	assert.NotEqual(t, s1, s2)

	// Odd lengths are supported
	s3, err := CryptoRandomString(31)
	require.NoError(t, err)
	assert.Len(t, s3, 31)
}

func TestRandomToken(t *testing.T) {
	tok, err := RandomToken(48)
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.NotContains(t, tok, "=")
	assert.NotContains(t, tok, "+")
	assert.NotContains(t, tok, "/")

	other, err := RandomToken(48)
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestSHA256Hex(t *testing.T) {
	// Deterministic and stable across calls
	assert.Equal(t, SHA256Hex("abc"), SHA256Hex("abc"))
	assert.NotEqual(t, SHA256Hex("abc"), SHA256Hex("abd"))
	assert.Len(t, SHA256Hex("abc"), 64)
	assert.Equal(
		t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		SHA256Hex("abc"),
	)
}

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, ConstantTimeEqual("same-value", "same-value"))
	assert.False(t, ConstantTimeEqual("same-value", "same-valuE"))
	assert.False(t, ConstantTimeEqual("short", "longer-value"))
	assert.True(t, ConstantTimeEqual("", ""))
}
