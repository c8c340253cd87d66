package document

import (
	"encoding/json"

	"github.com/systmms/secwallet/internal/secwcrypto"
	"github.com/systmms/secwallet/internal/secwerrors"
)

// wireDocument is the on-wire/on-disk shape shared by the normal and SRR
// forms; Private carries either the plaintext secret object (normal form)
// or its ciphertext wrapper string (SRR form, see package srr).
type wireDocument struct {
	ID      string                 `json:"secw_doc_id"`
	Name    string                 `json:"secw_doc_name"`
	Type    string                 `json:"secw_doc_type"`
	Tags    []string               `json:"secw_doc_tags"`
	Usages  []string               `json:"secw_doc_usages"`
	Version int                    `json:"secw_doc_version"`
	Public  map[string]interface{} `json:"secw_doc_public"`
	Private json.RawMessage        `json:"secw_doc_private,omitempty"`
}

// DecodeWithSecret parses the normal JSON form including the secret
// sub-object. Returns UnknownDocumentType / InvalidDocumentFormat on
// malformed input.
func DecodeWithSecret(data []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, secwerrors.New(secwerrors.SWSInvalidDocumentFormat, err.Error())
	}
	return fromWire(&w, true)
}

// DecodeWithoutSecret parses the normal JSON form, ignoring any secret
// sub-object even if present.
func DecodeWithoutSecret(data []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, secwerrors.New(secwerrors.SWSInvalidDocumentFormat, err.Error())
	}
	w.Private = nil
	return fromWire(&w, false)
}

func fromWireHeader(w *wireDocument) (*Document, error) {
	if w.Type == "" {
		return nil, secwerrors.InvalidDocumentFormat("secw_doc_type")
	}
	t := Type(w.Type)
	if !IsSupportedType(t) {
		return nil, secwerrors.UnknownDocumentType(w.Type)
	}
	if w.Name == "" {
		return nil, secwerrors.InvalidDocumentFormat("secw_doc_name")
	}
	if w.Public == nil {
		return nil, secwerrors.InvalidDocumentFormat("secw_doc_public")
	}

	return &Document{
		ID:      w.ID,
		Name:    w.Name,
		Type:    t,
		Tags:    append([]string(nil), w.Tags...),
		Usages:  append([]string(nil), w.Usages...),
		Version: w.Version,
		Public:  w.Public,
	}, nil
}

func fromWire(w *wireDocument, wantSecret bool) (*Document, error) {
	doc, err := fromWireHeader(w)
	if err != nil {
		return nil, err
	}

	if len(w.Private) > 0 {
		var secret map[string]interface{}
		if err := json.Unmarshal(w.Private, &secret); err != nil {
			return nil, secwerrors.InvalidDocumentFormat("secw_doc_private")
		}
		doc.Secret = secret
		doc.HasSecret = true
	} else if wantSecret {
		doc.Secret = map[string]interface{}{}
	}

	return doc, nil
}

// EncodeWithSecret renders the normal JSON form including the secret
// sub-object. The caller must ensure d.HasSecret before calling, or the
// private member is simply omitted.
func (d *Document) EncodeWithSecret() ([]byte, error) {
	w := d.toWire()
	if d.HasSecret {
		raw, err := json.Marshal(d.Secret)
		if err != nil {
			return nil, err
		}
		w.Private = raw
	}
	return json.Marshal(w)
}

// EncodeWithoutSecret renders the normal JSON form omitting the secret
// sub-object entirely — the public projection served by *_WITHOUT_SECRET
// commands and compared against in round-trip tests.
func (d *Document) EncodeWithoutSecret() ([]byte, error) {
	w := d.toWire()
	w.Private = nil
	return json.Marshal(w)
}

// DecodeIncoming parses and validates a document submitted by a client
// (CREATE/UPDATE payload): JSON Schema pre-pass, full decode, then the
// hand-written per-type Validate().
func DecodeIncoming(raw []byte) (*Document, error) {
	docType, err := peekType(raw)
	if err != nil {
		return nil, err
	}
	if err := ValidateSchema(docType, raw); err != nil {
		return nil, err
	}
	doc, err := DecodeWithSecret(raw)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Document) toWire() wireDocument {
	return wireDocument{
		ID:      d.ID,
		Name:    d.Name,
		Type:    string(d.Type),
		Tags:    d.Tags,
		Usages:  d.Usages,
		Version: d.Version,
		Public:  d.Public,
	}
}

// EncodeSRR renders the SRR form (spec.md §4.1): identical to the normal
// form except the secret sub-object, if present, is replaced by its
// ciphertext wrapper string sealed with passphrase (spec.md §4.5).
func (d *Document) EncodeSRR(passphrase string) ([]byte, error) {
	w := d.toWire()
	if d.HasSecret {
		secretRaw, err := json.Marshal(d.Secret)
		if err != nil {
			return nil, err
		}
		opaque, err := secwcrypto.Wrap(secretRaw, passphrase)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(opaque)
		if err != nil {
			return nil, err
		}
		w.Private = raw
	}
	return json.Marshal(w)
}

// DecodeSRR parses the SRR form, unwrapping the secret sub-object with
// passphrase. Returns secwcrypto.ErrBadPassphrase if passphrase does not
// authenticate the ciphertext wrapper.
func DecodeSRR(data []byte, passphrase string) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, secwerrors.New(secwerrors.SWSInvalidDocumentFormat, err.Error())
	}
	doc, err := fromWireHeader(&w)
	if err != nil {
		return nil, err
	}

	if len(w.Private) > 0 {
		var opaque string
		if err := json.Unmarshal(w.Private, &opaque); err != nil {
			return nil, secwerrors.InvalidDocumentFormat("secw_doc_private")
		}
		plaintext, err := secwcrypto.Unwrap(opaque, passphrase)
		if err != nil {
			return nil, err
		}
		var secret map[string]interface{}
		if err := json.Unmarshal(plaintext, &secret); err != nil {
			return nil, secwerrors.InvalidDocumentFormat("secw_doc_private")
		}
		doc.Secret = secret
		doc.HasSecret = true
	}

	return doc, nil
}
