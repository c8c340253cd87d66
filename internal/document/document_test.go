package document_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secwallet/internal/document"
	"github.com/systmms/secwallet/internal/secwerrors"
)

func snmpv3Payload(level string) []byte {
	body := `{
		"secw_doc_name": "Test insert snmpv3",
		"secw_doc_type": "Snmpv3",
		"secw_doc_usages": ["discovery_monitoring"],
		"secw_doc_public": {
			"security_level": "` + level + `",
			"security_name": "n",
			"auth_protocol": "MD5",
			"priv_protocol": "AES"
		},
		"secw_doc_private": {"auth_password": "a", "priv_password": "p"}
	}`
	return []byte(body)
}

func TestDecodeIncomingSnmpv3Valid(t *testing.T) {
	doc, err := document.DecodeIncoming(snmpv3Payload(document.SecurityLevelAuthPriv))
	require.NoError(t, err)
	assert.Equal(t, document.TypeSnmpv3, doc.Type)
	assert.Equal(t, "Test insert snmpv3", doc.Name)
	assert.True(t, doc.HasSecret)
}

func TestSnmpv3NoAuthNoPrivAllowsEmptyPasswords(t *testing.T) {
	payload := []byte(`{
		"secw_doc_name": "n",
		"secw_doc_type": "Snmpv3",
		"secw_doc_public": {
			"security_level": "NoAuthNoPriv",
			"security_name": "n",
			"auth_protocol": "MD5",
			"priv_protocol": "AES"
		},
		"secw_doc_private": {"auth_password": "", "priv_password": ""}
	}`)
	doc, err := document.DecodeIncoming(payload)
	require.NoError(t, err)
	assert.NoError(t, doc.Validate())
}

func TestSnmpv3AuthNoPrivRequiresAuthPassword(t *testing.T) {
	payload := []byte(`{
		"secw_doc_name": "n",
		"secw_doc_type": "Snmpv3",
		"secw_doc_public": {
			"security_level": "AuthNoPriv",
			"security_name": "n",
			"auth_protocol": "MD5",
			"priv_protocol": "AES"
		},
		"secw_doc_private": {"auth_password": "", "priv_password": ""}
	}`)
	_, err := document.DecodeIncoming(payload)
	require.Error(t, err)
	secwErr, ok := secwerrors.FromError(err)
	require.True(t, ok)
	assert.Equal(t, secwerrors.SWSInvalidDocumentFormat, secwErr.Code)
}

func TestEmptyCommunityNameFails(t *testing.T) {
	payload := []byte(`{
		"secw_doc_name": "n",
		"secw_doc_type": "Snmpv1",
		"secw_doc_public": {"community_name": ""}
	}`)
	_, err := document.DecodeIncoming(payload)
	require.Error(t, err)
}

func TestUnknownDocumentType(t *testing.T) {
	payload := []byte(`{"secw_doc_name":"n","secw_doc_type":"Bogus","secw_doc_public":{}}`)
	_, err := document.DecodeIncoming(payload)
	require.Error(t, err)
	secwErr, ok := secwerrors.FromError(err)
	require.True(t, ok)
	assert.Equal(t, secwerrors.SWSUnknownDocumentType, secwErr.Code)
}

func TestEncodeDecodeRoundTripWithSecret(t *testing.T) {
	doc, err := document.DecodeIncoming(snmpv3Payload(document.SecurityLevelAuthPriv))
	require.NoError(t, err)
	doc.ID = document.NewID()

	raw, err := doc.EncodeWithSecret()
	require.NoError(t, err)

	decoded, err := document.DecodeWithSecret(raw)
	require.NoError(t, err)

	assert.True(t, doc.NonSecretEquals(decoded))
	assert.True(t, doc.SecretEquals(decoded))
}

func TestEncodeWithoutSecretOmitsPrivate(t *testing.T) {
	doc, err := document.DecodeIncoming(snmpv3Payload(document.SecurityLevelAuthPriv))
	require.NoError(t, err)
	doc.ID = document.NewID()

	raw, err := doc.EncodeWithoutSecret()
	require.NoError(t, err)

	decoded, err := document.DecodeWithoutSecret(raw)
	require.NoError(t, err)
	assert.False(t, decoded.HasSecret)
	assert.True(t, doc.NonSecretEquals(decoded))
}

func TestEncodeSRRSealsSecretAndDecodeSRRUnseals(t *testing.T) {
	doc, err := document.DecodeIncoming(snmpv3Payload(document.SecurityLevelAuthPriv))
	require.NoError(t, err)
	doc.ID = document.NewID()
	doc.Version = 3

	raw, err := doc.EncodeSRR("correct-horse-battery-staple")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "auth_password")
	assert.NotContains(t, string(raw), `"a"`)

	decoded, err := document.DecodeSRR(raw, "correct-horse-battery-staple")
	require.NoError(t, err)
	assert.True(t, doc.NonSecretEquals(decoded))
	assert.True(t, doc.SecretEquals(decoded))
	assert.Equal(t, 3, decoded.Version)
	assert.True(t, decoded.HasSecret)
}

func TestDecodeSRRWithWrongPassphraseFails(t *testing.T) {
	doc, err := document.DecodeIncoming(snmpv3Payload(document.SecurityLevelAuthPriv))
	require.NoError(t, err)
	doc.ID = document.NewID()

	raw, err := doc.EncodeSRR("correct-horse-battery-staple")
	require.NoError(t, err)

	_, err = document.DecodeSRR(raw, "wrong-passphrase")
	require.Error(t, err)
}

func TestEncodeDecodeRoundTripPreservesVersion(t *testing.T) {
	doc, err := document.DecodeIncoming(snmpv3Payload(document.SecurityLevelAuthPriv))
	require.NoError(t, err)
	doc.ID = document.NewID()
	doc.Version = 7

	raw, err := doc.EncodeWithSecret()
	require.NoError(t, err)

	decoded, err := document.DecodeWithSecret(raw)
	require.NoError(t, err)
	assert.Equal(t, 7, decoded.Version)
}

func TestUsageDeltaSymmetricDifference(t *testing.T) {
	delta := document.UsageDelta([]string{"a", "b"}, []string{"b", "c"})
	assert.ElementsMatch(t, []string{"a", "c"}, delta)
}

func TestInternalCertificateRejectsUnparseablePEM(t *testing.T) {
	// Unparseable certificate and key: schema passes but the hand-written
	// validator must reject the PEM contents.
	payload := []byte(`{
		"secw_doc_name": "n",
		"secw_doc_type": "InternalCertificate",
		"secw_doc_public": {"pem": "not-a-real-pem"},
		"secw_doc_private": {"private_key_pem": "also-not-real"}
	}`)
	_, err := document.DecodeIncoming(payload)
	require.Error(t, err)
}
