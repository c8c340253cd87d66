package document

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/systmms/secwallet/internal/secwerrors"
)

// Embedded JSON Schemas, one per document type, checked before the
// hand-written Validate() rules run. These catch a missing or non-object
// secw_doc_public and missing or wrongly typed public fields with a uniform
// error shape; header keys and extra keys are not checked here. The
// hand-written validator remains authoritative for domain invariants a
// generic schema cannot express (e.g. "auth password required when
// AuthPriv").
var schemas = map[Type]string{
	TypeSnmpv1: `{
		"type": "object",
		"properties": {
			"secw_doc_public": {
				"type": "object",
				"properties": { "community_name": {"type": "string"} },
				"required": ["community_name"]
			}
		},
		"required": ["secw_doc_public"]
	}`,
	TypeSnmpv3: `{
		"type": "object",
		"properties": {
			"secw_doc_public": {
				"type": "object",
				"properties": {
					"security_level": {"type": "string"},
					"security_name": {"type": "string"},
					"auth_protocol": {"type": "string"},
					"priv_protocol": {"type": "string"}
				},
				"required": ["security_level", "security_name"]
			}
		},
		"required": ["secw_doc_public"]
	}`,
	TypeUserAndPassword: `{
		"type": "object",
		"properties": {
			"secw_doc_public": {
				"type": "object",
				"properties": { "username": {"type": "string"} },
				"required": ["username"]
			}
		},
		"required": ["secw_doc_public"]
	}`,
	TypeExternalCertificate: `{
		"type": "object",
		"properties": {
			"secw_doc_public": {
				"type": "object",
				"properties": { "pem": {"type": "string"} },
				"required": ["pem"]
			}
		},
		"required": ["secw_doc_public"]
	}`,
	TypeInternalCertificate: `{
		"type": "object",
		"properties": {
			"secw_doc_public": {
				"type": "object",
				"properties": { "pem": {"type": "string"} },
				"required": ["pem"]
			}
		},
		"required": ["secw_doc_public"]
	}`,
}

// ValidateSchema runs the JSON Schema pre-pass for the document's declared
// type against the raw wire payload, before any decode into typed fields.
func ValidateSchema(docType Type, raw []byte) error {
	schemaText, ok := schemas[docType]
	if !ok {
		return secwerrors.UnknownDocumentType(string(docType))
	}

	schemaLoader := gojsonschema.NewStringLoader(schemaText)
	documentLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return secwerrors.New(secwerrors.SWSInvalidDocumentFormat, err.Error())
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return secwerrors.New(secwerrors.SWSInvalidDocumentFormat, strings.Join(msgs, "; "))
	}
	return nil
}

// peekType extracts secw_doc_type from a raw payload without a full decode,
// so ValidateSchema can run before fromWire.
func peekType(raw []byte) (Type, error) {
	var probe struct {
		Type string `json:"secw_doc_type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", secwerrors.New(secwerrors.SWSInvalidDocumentFormat, err.Error())
	}
	if probe.Type == "" {
		return "", secwerrors.InvalidDocumentFormat("secw_doc_type")
	}
	return Type(probe.Type), nil
}
