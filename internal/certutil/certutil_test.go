package certutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSignedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, GenerateSelfSigned(dir, []string{"127.0.0.1", "localhost"}, 24*time.Hour))

	cert, err := LoadTLSCertificate(dir)
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Certificate)
	assert.NotNil(t, cert.PrivateKey)

	pool, err := TrustPool(dir)
	require.NoError(t, err)
	assert.NotNil(t, pool)
}
