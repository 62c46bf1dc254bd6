package tls

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSelfSignedCert_Defaults(t *testing.T) {
	t.Parallel()

	gen, err := GenerateSelfSignedCert(nil)
	require.NoError(t, err)

	cert := gen.Certificate
	assert.Equal(t, "nt", cert.Subject.Organization[0])
	assert.Equal(t, "localhost", cert.Subject.CommonName)
	assert.Contains(t, cert.DNSNames, "localhost")
	assert.Len(t, cert.IPAddresses, 2)
	assert.True(t, cert.NotAfter.After(time.Now()))

	require.NoError(t, cert.VerifyHostname("127.0.0.1"))
	require.NoError(t, cert.VerifyHostname("localhost"))
}

func TestGenerateSelfSignedCert_VerifiesAgainstItself(t *testing.T) {
	t.Parallel()

	gen, err := GenerateSelfSignedCert(&CertificateConfig{
		Organization: "test",
		Hosts:        []string{"example.test"},
		ValidFor:     time.Hour,
	})
	require.NoError(t, err)

	pool := x509.NewCertPool()
	require.True(t, pool.AppendCertsFromPEM(gen.CertPEM))

	_, err = gen.Certificate.Verify(x509.VerifyOptions{
		DNSName: "example.test",
		Roots:   pool,
	})
	assert.NoError(t, err)

	_, err = gen.TLSCertificate()
	assert.NoError(t, err)
}

func TestWriteCertPEM(t *testing.T) {
	t.Parallel()

	gen, err := GenerateSelfSignedCert(nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "certs", "nt.pem")
	require.NoError(t, gen.WriteCertPEM(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, gen.CertPEM, data)
}
