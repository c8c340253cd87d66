package document

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"

	"github.com/systmms/secwallet/internal/secwerrors"
)

// Snmpv3 enumerations, matching the original system's field values.
const (
	SecurityLevelNoAuthNoPriv = "NoAuthNoPriv"
	SecurityLevelAuthNoPriv   = "AuthNoPriv"
	SecurityLevelAuthPriv    = "AuthPriv"

	AuthProtocolMD5    = "MD5"
	AuthProtocolSHA    = "SHA"
	AuthProtocolSHA256 = "SHA256"
	AuthProtocolSHA384 = "SHA384"
	AuthProtocolSHA512 = "SHA512"

	PrivProtocolDES    = "DES"
	PrivProtocolAES    = "AES"
	PrivProtocolAES192 = "AES192"
	PrivProtocolAES256 = "AES256"
)

func validateSnmpv1(d *Document) error {
	community, ok := stringField(d.Public, "community_name")
	if !ok || community == "" {
		return secwerrors.InvalidDocumentFormat("community_name")
	}
	return nil
}

func validateSnmpv3(d *Document) error {
	level, ok := stringField(d.Public, "security_level")
	if !ok || level == "" {
		return secwerrors.InvalidDocumentFormat("security_level")
	}
	switch level {
	case SecurityLevelNoAuthNoPriv, SecurityLevelAuthNoPriv, SecurityLevelAuthPriv:
	default:
		return secwerrors.InvalidDocumentFormat("security_level")
	}

	securityName, ok := stringField(d.Public, "security_name")
	if !ok || securityName == "" {
		return secwerrors.InvalidDocumentFormat("security_name")
	}

	authProtocol, _ := stringField(d.Public, "auth_protocol")
	switch authProtocol {
	case AuthProtocolMD5, AuthProtocolSHA, AuthProtocolSHA256, AuthProtocolSHA384, AuthProtocolSHA512:
	default:
		return secwerrors.InvalidDocumentFormat("auth_protocol")
	}

	privProtocol, _ := stringField(d.Public, "priv_protocol")
	switch privProtocol {
	case PrivProtocolDES, PrivProtocolAES, PrivProtocolAES192, PrivProtocolAES256:
	default:
		return secwerrors.InvalidDocumentFormat("priv_protocol")
	}

	authPassword, _ := stringField(d.Secret, "auth_password")
	privPassword, _ := stringField(d.Secret, "priv_password")

	switch level {
	case SecurityLevelAuthPriv:
		if authPassword == "" {
			return secwerrors.InvalidDocumentFormat("auth_password")
		}
		if privPassword == "" {
			return secwerrors.InvalidDocumentFormat("priv_password")
		}
	case SecurityLevelAuthNoPriv:
		if authPassword == "" {
			return secwerrors.InvalidDocumentFormat("auth_password")
		}
	}
	return nil
}

func validateUserAndPassword(d *Document) error {
	username, ok := stringField(d.Public, "username")
	if !ok || username == "" {
		return secwerrors.InvalidDocumentFormat("username")
	}
	password, ok := stringField(d.Secret, "password")
	if !ok || password == "" {
		return secwerrors.InvalidDocumentFormat("password")
	}
	return nil
}

func validateExternalCertificate(d *Document) error {
	pemStr, ok := stringField(d.Public, "pem")
	if !ok || pemStr == "" {
		return secwerrors.InvalidDocumentFormat("pem")
	}
	if _, err := parseCertificate(pemStr); err != nil {
		return secwerrors.InvalidDocumentFormat("pem")
	}
	return nil
}

func validateInternalCertificate(d *Document) error {
	pemStr, ok := stringField(d.Public, "pem")
	if !ok || pemStr == "" {
		return secwerrors.InvalidDocumentFormat("pem")
	}
	keyStr, ok := stringField(d.Secret, "private_key_pem")
	if !ok || keyStr == "" {
		return secwerrors.InvalidDocumentFormat("private_key_pem")
	}

	cert, err := parseCertificate(pemStr)
	if err != nil {
		return secwerrors.InvalidDocumentFormat("pem")
	}
	keyPub, err := parsePrivateKeyPublic(keyStr)
	if err != nil {
		return secwerrors.InvalidDocumentFormat("private_key_pem")
	}
	if !publicKeysEqual(cert.PublicKey, keyPub) {
		return secwerrors.InvalidDocumentFormat("private_key_pem")
	}
	return nil
}

// parseCertificate decodes a single PEM-encoded X.509 certificate. This is
// the narrow certificate-parsing collaborator spec.md names as out of
// scope for anything beyond validation; it sits entirely behind this
// function so a third-party parser could be swapped in without touching
// callers.
func parseCertificate(pemStr string) (*x509.Certificate, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, secwerrors.New(secwerrors.SWSInvalidDocumentFormat, "not a PEM block")
	}
	return x509.ParseCertificate(block.Bytes)
}

func parsePrivateKeyPublic(pemStr string) (crypto.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemStr))
	if block == nil {
		return nil, secwerrors.New(secwerrors.SWSInvalidDocumentFormat, "not a PEM block")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if signer, ok := key.(crypto.Signer); ok {
			return signer.Public(), nil
		}
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key.Public(), nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key.Public(), nil
	}
	return nil, secwerrors.New(secwerrors.SWSInvalidDocumentFormat, "unrecognized private key encoding")
}

func publicKeysEqual(a, b crypto.PublicKey) bool {
	ea, ok := a.(interface{ Equal(x crypto.PublicKey) bool })
	if !ok {
		return false
	}
	return ea.Equal(b)
}
