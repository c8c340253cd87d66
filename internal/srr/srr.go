// Package srr implements the save/restore processor shared by SWS and
// CAMS: per-feature passphrase-wrapped save, whole-state-replace restore,
// on the separate SRR messaging channel named in spec.md §4.5.
package srr

import (
	"encoding/json"

	"github.com/systmms/secwallet/internal/cams"
	"github.com/systmms/secwallet/internal/secwcrypto"
	"github.com/systmms/secwallet/internal/sws"
)

// Feature names, exact strings per spec.md §4.5.
const (
	FeatureSecurityWallet         = "security-wallet"
	FeatureCredentialAssetMapping = "credential-asset-mapping"

	versionSecurityWallet = "1.0"
	versionMapping        = "1.0"

	minPassphraseLength = 8
)

// Status values carried in a FeatureAndStatus.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Status is the outcome of one feature's save or restore.
type Status struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Feature is one versioned feature payload.
type Feature struct {
	Version string          `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// FeatureAndStatus is the reply shape for one requested feature, per
// spec.md §4.5.
type FeatureAndStatus struct {
	Feature Feature `json:"feature"`
	Status  Status  `json:"status"`
}

// RestoreRequest pairs a feature name with the payload previously returned
// for it by Save, so Restore does not have to guess a feature's identity
// back out of its version string.
type RestoreRequest struct {
	Name    string  `json:"name"`
	Feature Feature `json:"feature"`
}

type securityWalletData struct {
	CheckPassphrase string          `json:"check_passphrase"`
	CheckPlatform   string          `json:"check_platform"`
	Portfolios      json.RawMessage `json:"portfolios"`
}

// Processor handles save/restore queries against the live SWS and CAMS
// servers. It is built once and shared by both features, mirroring the
// single SRR bus named in spec.md §2.
type Processor struct {
	sws  *sws.Server
	cams *cams.Server
}

// New builds a Processor over the already-running SWS and CAMS servers.
func New(swsServer *sws.Server, camsServer *cams.Server) *Processor {
	return &Processor{sws: swsServer, cams: camsServer}
}

// Save produces a FeatureAndStatus for each requested feature name. Unknown
// feature names are reported individually as FAILED rather than aborting
// the whole batch.
func (p *Processor) Save(features []string, passphrase string) []FeatureAndStatus {
	out := make([]FeatureAndStatus, 0, len(features))
	if len(passphrase) < minPassphraseLength {
		status := failedStatus("passphrase must be at least 8 characters")
		for _, f := range features {
			out = append(out, FeatureAndStatus{Feature: Feature{Version: featureVersion(f)}, Status: status})
		}
		return out
	}

	for _, f := range features {
		switch f {
		case FeatureSecurityWallet:
			out = append(out, p.saveSecurityWallet(passphrase))
		case FeatureCredentialAssetMapping:
			out = append(out, p.saveMapping())
		default:
			out = append(out, FeatureAndStatus{Status: failedStatus("unknown feature '" + f + "'")})
		}
	}
	return out
}

// Restore applies each supplied feature, replacing that store's entire
// state. A feature that fails to parse or authenticate leaves that store's
// prior in-memory state untouched (spec.md §4.5).
func (p *Processor) Restore(requests []RestoreRequest, passphrase string) []FeatureAndStatus {
	out := make([]FeatureAndStatus, 0, len(requests))
	if len(passphrase) < minPassphraseLength {
		status := failedStatus("passphrase must be at least 8 characters")
		for _, r := range requests {
			out = append(out, FeatureAndStatus{Feature: r.Feature, Status: status})
		}
		return out
	}

	for _, r := range requests {
		switch r.Name {
		case FeatureSecurityWallet:
			out = append(out, p.restoreSecurityWallet(r.Feature, passphrase))
		case FeatureCredentialAssetMapping:
			out = append(out, p.restoreMapping(r.Feature))
		default:
			out = append(out, FeatureAndStatus{Feature: r.Feature, Status: failedStatus("unknown feature '" + r.Name + "'")})
		}
	}
	return out
}

func (p *Processor) saveSecurityWallet(passphrase string) FeatureAndStatus {
	p.sws.Lock()
	defer p.sws.Unlock()

	raw, err := p.sws.Store().ExportPortfolios(passphrase)
	if err != nil {
		return FeatureAndStatus{Feature: Feature{Version: versionSecurityWallet}, Status: failedStatus(err.Error())}
	}

	checkPassphrase, err := secwcrypto.WrapString(passphrase, passphrase)
	if err != nil {
		return FeatureAndStatus{Feature: Feature{Version: versionSecurityWallet}, Status: failedStatus(err.Error())}
	}
	checkPlatform, err := secwcrypto.WrapString(hostUUID(), passphrase)
	if err != nil {
		return FeatureAndStatus{Feature: Feature{Version: versionSecurityWallet}, Status: failedStatus(err.Error())}
	}

	data, err := json.Marshal(securityWalletData{
		CheckPassphrase: checkPassphrase,
		CheckPlatform:   checkPlatform,
		Portfolios:      raw,
	})
	if err != nil {
		return FeatureAndStatus{Feature: Feature{Version: versionSecurityWallet}, Status: failedStatus(err.Error())}
	}

	return FeatureAndStatus{
		Feature: Feature{Version: versionSecurityWallet, Data: data},
		Status:  Status{Status: StatusSuccess},
	}
}

func (p *Processor) saveMapping() FeatureAndStatus {
	p.cams.Lock()
	defer p.cams.Unlock()

	raw, err := p.cams.Store().Export()
	if err != nil {
		return FeatureAndStatus{Feature: Feature{Version: versionMapping}, Status: failedStatus(err.Error())}
	}
	return FeatureAndStatus{
		Feature: Feature{Version: versionMapping, Data: raw},
		Status:  Status{Status: StatusSuccess},
	}
}

func (p *Processor) restoreSecurityWallet(feature Feature, passphrase string) FeatureAndStatus {
	var data securityWalletData
	if err := json.Unmarshal(feature.Data, &data); err != nil {
		return FeatureAndStatus{Feature: feature, Status: failedStatus(err.Error())}
	}

	if _, err := secwcrypto.UnwrapString(data.CheckPassphrase, passphrase); err != nil {
		return FeatureAndStatus{Feature: feature, Status: failedStatus("Bad passphrase")}
	}

	// Platform mismatch does not fail the restore (spec.md §4.5): the
	// check field is unwrapped but never compared with this host's id, and
	// the result is neither reported nor acted on. Each document's own
	// secret sub-object is sealed independently via EncodeSRR/DecodeSRR
	// and does not depend on the host.
	_, _ = secwcrypto.UnwrapString(data.CheckPlatform, passphrase)

	p.sws.Lock()
	defer p.sws.Unlock()

	if err := p.sws.Store().ImportPortfolios(data.Portfolios, passphrase); err != nil {
		return FeatureAndStatus{Feature: feature, Status: failedStatus(err.Error())}
	}
	return FeatureAndStatus{Feature: feature, Status: Status{Status: StatusSuccess}}
}

func (p *Processor) restoreMapping(feature Feature) FeatureAndStatus {
	p.cams.Lock()
	defer p.cams.Unlock()

	if err := p.cams.Store().Import(feature.Data); err != nil {
		return FeatureAndStatus{Feature: feature, Status: failedStatus(err.Error())}
	}
	return FeatureAndStatus{Feature: feature, Status: Status{Status: StatusSuccess}}
}

func featureVersion(name string) string {
	switch name {
	case FeatureSecurityWallet:
		return versionSecurityWallet
	case FeatureCredentialAssetMapping:
		return versionMapping
	default:
		return ""
	}
}

func failedStatus(whatArg string) Status {
	return Status{Status: StatusFailed, Error: whatArg}
}
