package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/systmms/secwallet/internal/document"
	"github.com/systmms/secwallet/internal/logging"
	"github.com/systmms/secwallet/internal/secwerrors"
)

const supportedDatabaseVersion = 1

type walletFile struct {
	Version    int                `json:"version"`
	Portfolios []portfolioWire `json:"portfolios"`
}

type portfolioWire struct {
	Version   int               `json:"version"`
	Name      string            `json:"name"`
	Documents []json.RawMessage `json:"documents"`
}

// Store owns the full set of portfolios backed by a single wallet database
// file (database.json).
type Store struct {
	path       string
	log        *logging.Logger
	portfolios map[string]*Portfolio
}

// NewStore creates a store backed by path, with an empty portfolio set.
// Callers typically follow with Load.
func NewStore(path string, log *logging.Logger) *Store {
	return &Store{path: path, log: log, portfolios: make(map[string]*Portfolio)}
}

// EnsurePortfolio creates the named portfolio if it does not already exist,
// matching spec.md §3's "portfolios are created implicitly from
// configuration at startup; never deleted at runtime."
func (s *Store) EnsurePortfolio(name string) *Portfolio {
	if p, ok := s.portfolios[name]; ok {
		return p
	}
	p := New(name)
	s.portfolios[name] = p
	return p
}

// Get returns the named portfolio.
func (s *Store) Get(name string) (*Portfolio, error) {
	p, ok := s.portfolios[name]
	if !ok {
		return nil, secwerrors.UnknownPortfolio(name)
	}
	return p, nil
}

// Names lists every known portfolio name.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.portfolios))
	for n := range s.portfolios {
		names = append(names, n)
	}
	return names
}

// Load reads the wallet database file and populates the store's
// portfolios. Documents that round-trip without their secret part are
// dropped and logged (spec.md §4.2, §9 — lenient behavior preserved). A
// database version this build does not understand is a fatal
// ImpossibleToLoadPortfolio error.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return secwerrors.ImpossibleToLoadPortfolio(err.Error())
	}

	var wf walletFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return secwerrors.ImpossibleToLoadPortfolio(err.Error())
	}
	if wf.Version != supportedDatabaseVersion {
		return secwerrors.ImpossibleToLoadPortfolio(fmt.Sprintf("unsupported database version %d", wf.Version))
	}

	for _, pw := range wf.Portfolios {
		p := s.EnsurePortfolio(pw.Name)
		p.version = pw.Version
		for _, raw := range pw.Documents {
			doc, err := document.DecodeWithSecret(raw)
			if err != nil {
				if s.log != nil {
					s.log.Warn("dropping unreadable document in portfolio %s: %v", pw.Name, err)
				}
				continue
			}
			if !doc.HasSecret {
				if s.log != nil {
					s.log.Warn("dropping public-only document %q in portfolio %s", doc.Name, pw.Name)
				}
				continue
			}
			if doc.ID == "" {
				doc.ID = document.NewID()
			}
			if err := p.Add(doc); err != nil {
				if s.log != nil {
					s.log.Warn("dropping duplicate document %q in portfolio %s: %v", doc.Name, pw.Name, err)
				}
			}
		}
	}
	return nil
}

// ExportPortfolios renders every portfolio in the SRR form (spec.md
// §4.1/§4.5): the bare JSON array of portfolio entries (Save's
// "portfolios" member, without the top-level version envelope), with each
// document's secret sub-object sealed with passphrase instead of carried
// in the clear, for the SRR processor's save query.
func (s *Store) ExportPortfolios(passphrase string) ([]byte, error) {
	wf := walletFile{Version: supportedDatabaseVersion}
	for name, p := range s.portfolios {
		p.mu.RLock()
		docs := make([]json.RawMessage, 0, len(p.byID))
		for _, d := range p.byID {
			raw, err := d.EncodeSRR(passphrase)
			if err != nil {
				p.mu.RUnlock()
				return nil, err
			}
			docs = append(docs, raw)
		}
		version := p.version
		p.mu.RUnlock()

		wf.Portfolios = append(wf.Portfolios, portfolioWire{
			Version:   version,
			Name:      name,
			Documents: docs,
		})
	}
	return json.Marshal(wf.Portfolios)
}

// ImportPortfolios replaces the entire in-memory portfolio set from data
// previously produced by ExportPortfolios, unsealing each document's secret
// sub-object with passphrase — the SRR restore processor's "replace the
// portfolio set entirely" semantics (spec.md §4.5). Malformed input or a bad
// passphrase leaves the store untouched and returns an error so the caller
// can preserve the prior in-memory state on FAILED restore.
func (s *Store) ImportPortfolios(data []byte, passphrase string) error {
	var wires []portfolioWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return secwerrors.ImpossibleToLoadPortfolio(err.Error())
	}

	rebuilt := make(map[string]*Portfolio, len(wires))
	for _, pw := range wires {
		p := New(pw.Name)
		p.version = pw.Version
		for _, raw := range pw.Documents {
			doc, err := document.DecodeSRR(raw, passphrase)
			if err != nil {
				return secwerrors.ImpossibleToLoadPortfolio(err.Error())
			}
			if doc.ID == "" {
				doc.ID = document.NewID()
			}
			if err := p.Add(doc); err != nil {
				return err
			}
		}
		rebuilt[pw.Name] = p
	}

	s.portfolios = rebuilt
	return nil
}

// Save writes the entire wallet database atomically: write to a temp file
// in the same directory, fsync, then rename over the target (spec.md §5,
// §9 — avoids torn files on crash).
func (s *Store) Save() error {
	wf := walletFile{Version: supportedDatabaseVersion}
	for name, p := range s.portfolios {
		p.mu.RLock()
		docs := make([]json.RawMessage, 0, len(p.byID))
		for _, d := range p.byID {
			raw, err := d.EncodeWithSecret()
			if err != nil {
				p.mu.RUnlock()
				return err
			}
			docs = append(docs, raw)
		}
		version := p.version
		p.mu.RUnlock()

		wf.Portfolios = append(wf.Portfolios, portfolioWire{
			Version:   version,
			Name:      name,
			Documents: docs,
		})
	}

	data, err := json.MarshalIndent(wf, "", "  ")
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
