package tlsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSignedCert_LoadsForServerAndClient(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, GenerateSelfSignedCert([]string{"localhost", "127.0.0.1"}, dir))

	for _, f := range []string{"ca.pem", "ca-key.pem", "server.pem", "server-key.pem", "client.pem", "client-key.pem"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, f)
	}

	serverCreds, err := ServerTLSConfig(filepath.Join(dir, "server.pem"), filepath.Join(dir, "server-key.pem"), filepath.Join(dir, "ca.pem"))
	require.NoError(t, err)
	assert.Equal(t, "tls", serverCreds.Info().SecurityProtocol)

	clientCreds, err := ClientTLSConfig(filepath.Join(dir, "ca.pem"), filepath.Join(dir, "client.pem"), filepath.Join(dir, "client-key.pem"), false)
	require.NoError(t, err)
	assert.Equal(t, "tls", clientCreds.Info().SecurityProtocol)
}

func TestServerTLSConfig_MissingFiles(t *testing.T) {
	_, err := ServerTLSConfig("/nonexistent/server.pem", "/nonexistent/server-key.pem", "")
	assert.Error(t, err)
}

func TestClientTLSConfig_BadCA(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "ca.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a cert"), 0o600))

	_, err := ClientTLSConfig(bad, "", "", false)
	assert.Error(t, err)
}
