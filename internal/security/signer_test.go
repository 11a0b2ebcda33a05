package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	signer, err := NewSigner()
	require.NoError(t, err)

	payload := map[string]interface{}{
		"succeeded":        []string{"lido", "marinade"},
		"totalRowsWritten": 5,
	}

	signed, err := signer.Sign(payload)
	require.NoError(t, err)
	assert.NotEmpty(t, signed.Signature)
	assert.Equal(t, signer.PublicKey(), signed.PublicKey)
	assert.NotZero(t, signed.SignedAt)

	ok, err := Verify(signed)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	signer, err := NewSigner()
	require.NoError(t, err)

	signed, err := signer.Sign(map[string]string{"status": "success"})
	require.NoError(t, err)

	signed.Payload = []byte(`{"status":"failure"}`)

	ok, err := Verify(signed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsMalformedSignature(t *testing.T) {
	signer, err := NewSigner()
	require.NoError(t, err)

	signed, err := signer.Sign(map[string]string{"status": "success"})
	require.NoError(t, err)

	signed.Signature = "zz-not-hex"
	_, err = Verify(signed)
	assert.Error(t, err)

	signed.Signature = "deadbeef"
	_, err = Verify(signed)
	assert.Error(t, err)
}

func TestSignersUseDistinctKeys(t *testing.T) {
	a, err := NewSigner()
	require.NoError(t, err)
	b, err := NewSigner()
	require.NoError(t, err)

	assert.NotEqual(t, a.PublicKey(), b.PublicKey())
}
