// Package mapping implements the credential-asset mapping record and its
// hash-keyed in-memory store, backed by an atomically-persisted JSON file.
package mapping

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/systmms/secwallet/internal/secwerrors"
)

// Status is the pure datum describing a mapping's health.
type Status string

const (
	StatusUnknown Status = "Unknown"
	StatusValid   Status = "Valid"
	StatusError   Status = "Error"
)

// Mapping is one (asset, service, protocol) -> credential binding.
type Mapping struct {
	AssetID      string            `json:"asset_id"`
	ServiceID    string            `json:"service_id"`
	Protocol     string            `json:"protocol"`
	Port         int               `json:"port,omitempty"`
	CredentialID string            `json:"credential_id,omitempty"`
	Status       Status            `json:"status"`
	ExtendedInfo map[string]string `json:"extended_info,omitempty"`
}

// Key returns the deterministic hash key for a mapping's triple, matching
// the original system's "A<asset>|S<service>|P:<protocol>" scheme (spec.md
// §4.2, §9 — the wire format never exposes the hash).
func Key(assetID, serviceID, protocol string) string {
	return "A" + assetID + "|S" + serviceID + "|P:" + protocol
}

func (m *Mapping) key() string {
	return Key(m.AssetID, m.ServiceID, m.Protocol)
}

// Validate checks that every identifying field is non-empty.
func (m *Mapping) Validate() error {
	if m.AssetID == "" {
		return secwerrors.MappingInvalid("asset_id is required")
	}
	if m.ServiceID == "" {
		return secwerrors.MappingInvalid("service_id is required")
	}
	if m.Protocol == "" {
		return secwerrors.MappingInvalid("protocol is required")
	}
	return nil
}

// Store is the in-memory mapping collection, keyed by the triple hash.
type Store struct {
	mu       sync.RWMutex
	path     string
	byKey    map[string]*Mapping
}

// NewStore creates an empty store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path, byKey: make(map[string]*Mapping)}
}

// Create inserts a new mapping. Fails with MappingAlreadyExists if the
// triple is already present.
func (s *Store) Create(m *Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := m.key()
	if _, exists := s.byKey[k]; exists {
		return secwerrors.MappingAlreadyExists(m.AssetID, m.ServiceID, m.Protocol)
	}
	if m.Status == "" {
		m.Status = StatusUnknown
	}
	s.byKey[k] = m
	return nil
}

// Get returns the mapping for a triple.
func (s *Store) Get(assetID, serviceID, protocol string) (*Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.byKey[Key(assetID, serviceID, protocol)]
	if !ok {
		return nil, secwerrors.MappingDoesNotExist(assetID, serviceID, protocol)
	}
	return m, nil
}

// Update replaces the whole record for an existing triple.
func (s *Store) Update(m *Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := m.key()
	if _, ok := s.byKey[k]; !ok {
		return secwerrors.MappingDoesNotExist(m.AssetID, m.ServiceID, m.Protocol)
	}
	s.byKey[k] = m
	return nil
}

// UpdatePort sets only the port field and resets status to Unknown (spec
// §4.4/§4.8).
func (s *Store) UpdatePort(assetID, serviceID, protocol string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byKey[Key(assetID, serviceID, protocol)]
	if !ok {
		return secwerrors.MappingDoesNotExist(assetID, serviceID, protocol)
	}
	m.Port = port
	m.Status = StatusUnknown
	return nil
}

// UpdateCredential sets only the credential field and resets status to
// Unknown.
func (s *Store) UpdateCredential(assetID, serviceID, protocol, credentialID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byKey[Key(assetID, serviceID, protocol)]
	if !ok {
		return secwerrors.MappingDoesNotExist(assetID, serviceID, protocol)
	}
	m.CredentialID = credentialID
	m.Status = StatusUnknown
	return nil
}

// UpdateStatus sets only the status field; it does not cascade (spec §4.8).
func (s *Store) UpdateStatus(assetID, serviceID, protocol string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byKey[Key(assetID, serviceID, protocol)]
	if !ok {
		return secwerrors.MappingDoesNotExist(assetID, serviceID, protocol)
	}
	m.Status = status
	return nil
}

// UpdateInfo sets only the extended_info field.
func (s *Store) UpdateInfo(assetID, serviceID, protocol string, info map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byKey[Key(assetID, serviceID, protocol)]
	if !ok {
		return secwerrors.MappingDoesNotExist(assetID, serviceID, protocol)
	}
	m.ExtendedInfo = info
	return nil
}

// Remove deletes a mapping by triple.
func (s *Store) Remove(assetID, serviceID, protocol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := Key(assetID, serviceID, protocol)
	if _, ok := s.byKey[k]; !ok {
		return secwerrors.MappingDoesNotExist(assetID, serviceID, protocol)
	}
	delete(s.byKey, k)
	return nil
}

// ByAsset returns every mapping for the given asset (linear scan; spec §4.2
// — secondary scans are linear, cardinality is small).
func (s *Store) ByAsset(assetID string) []*Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Mapping
	for _, m := range s.byKey {
		if m.AssetID == assetID {
			out = append(out, m)
		}
	}
	return out
}

// ByAssetAndService returns every mapping for the given asset/service pair.
func (s *Store) ByAssetAndService(assetID, serviceID string) []*Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Mapping
	for _, m := range s.byKey {
		if m.AssetID == assetID && m.ServiceID == serviceID {
			out = append(out, m)
		}
	}
	return out
}

// All returns every mapping in the store.
func (s *Store) All() []*Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Mapping, 0, len(s.byKey))
	for _, m := range s.byKey {
		out = append(out, m)
	}
	return out
}

// ByCredential returns every mapping referencing the given credential id.
func (s *Store) ByCredential(credentialID string) []*Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Mapping
	for _, m := range s.byKey {
		if m.CredentialID == credentialID {
			out = append(out, m)
		}
	}
	return out
}

// CountByCredential returns the number of mappings referencing the given
// credential id.
func (s *Store) CountByCredential(credentialID string) int {
	return len(s.ByCredential(credentialID))
}

// ByStatus returns every mapping matching status, supplementing the core
// command set for monitoring agents (original_source's
// cam_credential_asset_mapping_server.cc / cam_accessor.h).
func (s *Store) ByStatus(status Status) []*Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Mapping
	for _, m := range s.byKey {
		if m.Status == status {
			out = append(out, m)
		}
	}
	return out
}

type mappingFile struct {
	Version  int        `json:"version"`
	Mappings []*Mapping `json:"mappings"`
}

const supportedMappingVersion = 1

// Load reads the mapping database file.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var mf mappingFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return err
	}
	if mf.Version != supportedMappingVersion {
		return secwerrors.New(secwerrors.CAMSGeneric, "unsupported mapping database version")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey = make(map[string]*Mapping, len(mf.Mappings))
	for _, m := range mf.Mappings {
		s.byKey[m.key()] = m
	}
	return nil
}

// Export renders the whole mapping set in the persisted-file shape, for the
// SRR processor's save query (spec.md §4.5: "no encryption — mappings
// contain no secrets").
func (s *Store) Export() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mf := mappingFile{Version: supportedMappingVersion, Mappings: make([]*Mapping, 0, len(s.byKey))}
	for _, m := range s.byKey {
		mf.Mappings = append(mf.Mappings, m)
	}
	return json.Marshal(mf)
}

// Import replaces the entire mapping set from data previously produced by
// Export — SRR restore's "replace entirely" semantics. Malformed input
// leaves the store untouched.
func (s *Store) Import(data []byte) error {
	var mf mappingFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return secwerrors.New(secwerrors.CAMSGeneric, err.Error())
	}
	if mf.Version != supportedMappingVersion {
		return secwerrors.New(secwerrors.CAMSGeneric, "unsupported mapping database version")
	}

	rebuilt := make(map[string]*Mapping, len(mf.Mappings))
	for _, m := range mf.Mappings {
		if err := m.Validate(); err != nil {
			return err
		}
		rebuilt[m.key()] = m
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byKey = rebuilt
	return nil
}

// Save writes the mapping database atomically (write temp, fsync, rename).
func (s *Store) Save() error {
	s.mu.RLock()
	mf := mappingFile{Version: supportedMappingVersion, Mappings: make([]*Mapping, 0, len(s.byKey))}
	for _, m := range s.byKey {
		mf.Mappings = append(mf.Mappings, m)
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(s.path, data)
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
