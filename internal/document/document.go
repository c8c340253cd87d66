// Package document implements the credential document model: a tagged
// union of variants (Snmpv1, Snmpv3, UserAndPassword, ExternalCertificate,
// InternalCertificate) with a public/secret split, JSON codec, validation,
// and the SRR wire form.
package document

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"github.com/systmms/secwallet/internal/secwerrors"
)

// Type identifies one of the closed set of document variants.
type Type string

const (
	TypeSnmpv1              Type = "Snmpv1"
	TypeSnmpv3              Type = "Snmpv3"
	TypeUserAndPassword     Type = "UserAndPassword"
	TypeExternalCertificate Type = "ExternalCertificate"
	TypeInternalCertificate Type = "InternalCertificate"
)

// Wire header keys, matching the original system's serialization schema.
const (
	keyID      = "secw_doc_id"
	keyName    = "secw_doc_name"
	keyType    = "secw_doc_type"
	keyTags    = "secw_doc_tags"
	keyUsages  = "secw_doc_usages"
	keyPublic  = "secw_doc_public"
	keyPrivate = "secw_doc_private"
)

// Document is the in-memory representation of one credential entry. Public
// and Secret hold the type-specific body as decoded JSON objects; Validate
// dispatches to per-type rules against their contents.
type Document struct {
	ID      string
	Name    string
	Type    Type
	Tags    []string
	Usages  []string
	Public  map[string]interface{}
	Secret  map[string]interface{}
	Version int

	// HasSecret records whether Secret was populated from a source that
	// actually carried the secret sub-object. A document decoded without
	// its secret part (HasSecret=false) must never be persisted over one
	// that has it.
	HasSecret bool
}

// NewID returns a fresh opaque document identifier.
func NewID() string {
	return uuid.NewString()
}

// SupportedTypes lists every document type this build understands.
func SupportedTypes() []Type {
	return []Type{TypeSnmpv1, TypeSnmpv3, TypeUserAndPassword, TypeExternalCertificate, TypeInternalCertificate}
}

// IsSupportedType reports whether t is a known variant.
func IsSupportedType(t Type) bool {
	for _, s := range SupportedTypes() {
		if s == t {
			return true
		}
	}
	return false
}

// Validate checks the type-specific invariants over Public/Secret. It never
// inspects the header fields; callers validate name/id uniqueness
// themselves (portfolio-scoped).
func (d *Document) Validate() error {
	switch d.Type {
	case TypeSnmpv1:
		return validateSnmpv1(d)
	case TypeSnmpv3:
		return validateSnmpv3(d)
	case TypeUserAndPassword:
		return validateUserAndPassword(d)
	case TypeExternalCertificate:
		return validateExternalCertificate(d)
	case TypeInternalCertificate:
		return validateInternalCertificate(d)
	default:
		return secwerrors.UnknownDocumentType(string(d.Type))
	}
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intField(m map[string]interface{}, key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}

// NonSecretEquals compares header and public fields only.
func (d *Document) NonSecretEquals(other *Document) bool {
	if other == nil {
		return false
	}
	if d.ID != other.ID || d.Name != other.Name || d.Type != other.Type {
		return false
	}
	if !stringSetEqual(d.Tags, other.Tags) || !stringSetEqual(d.Usages, other.Usages) {
		return false
	}
	return jsonEqual(d.Public, other.Public)
}

// SecretEquals compares secret fields only.
func (d *Document) SecretEquals(other *Document) bool {
	if other == nil {
		return false
	}
	return jsonEqual(d.Secret, other.Secret)
}

func stringSetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func jsonEqual(a, b map[string]interface{}) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	var na, nb interface{}
	if json.Unmarshal(ab, &na) != nil || json.Unmarshal(bb, &nb) != nil {
		return false
	}
	nab, _ := json.Marshal(na)
	nbb, _ := json.Marshal(nb)
	return string(nab) == string(nbb)
}

// Clone returns a deep-enough copy for safe independent mutation of header
// fields; Public/Secret maps are copied one level deep.
func (d *Document) Clone() *Document {
	clone := *d
	clone.Tags = append([]string(nil), d.Tags...)
	clone.Usages = append([]string(nil), d.Usages...)
	clone.Public = cloneMap(d.Public)
	clone.Secret = cloneMap(d.Secret)
	return &clone
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// contains reports whether slice contains v.
func contains(slice []string, v string) bool {
	for _, s := range slice {
		if s == v {
			return true
		}
	}
	return false
}

// UsageDelta returns the symmetric difference between the usage sets of
// two documents, used by UPDATE gating (spec §4.3): usages present in
// exactly one of existing/incoming.
func UsageDelta(existing, incoming []string) []string {
	delta := make([]string, 0)
	for _, u := range existing {
		if !contains(incoming, u) {
			delta = append(delta, u)
		}
	}
	for _, u := range incoming {
		if !contains(existing, u) {
			delta = append(delta, u)
		}
	}
	return delta
}
