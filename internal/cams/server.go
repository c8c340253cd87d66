// Package cams implements the Credential-Asset Mapping Server: a
// sender-ungated command dispatcher over internal/mapping's triple-keyed
// store (spec.md §4.4).
package cams

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/systmms/secwallet/internal/logging"
	"github.com/systmms/secwallet/internal/mapping"
	"github.com/systmms/secwallet/internal/metrics"
	"github.com/systmms/secwallet/internal/secwerrors"
	"github.com/systmms/secwallet/internal/wire"
)

// Commands, exact strings per spec.md §4.4.
const (
	CmdCreateMapping           = "CREATE_MAPPING"
	CmdGetMapping              = "GET_MAPPING"
	CmdUpdateMapping           = "UPDATE_MAPPING"
	CmdUpdatePortMapping       = "UPDATE_PORT_MAPPING"
	CmdUpdateCredentialMapping = "UPDATE_CREDENTIAL_MAPPING"
	CmdUpdateStatusMapping     = "UPDATE_STATUS_MAPPING"
	CmdUpdateInfoMapping       = "UPDATE_INFO_MAPPING"
	CmdRemoveMapping           = "REMOVE_MAPPING"
	CmdGetAssetMappings        = "GET_ASSET_MAPPINGS"
	CmdGetMappings             = "GET_MAPPINGS"
	CmdGetAllMappings          = "GET_ALL_MAPPINGS"
	CmdGetCredMappings         = "GET_CRED_MAPPINGS"
	CmdCountCredMappings       = "COUNT_CRED_MAPPINGS"

	// CmdGetMappingsWithStatus is supplemented from original_source's
	// cam_accessor.h convenience read (spec.md §4.4).
	CmdGetMappingsWithStatus = "GET_MAPPINGS_WITH_STATUS"
)

// Server is the Credential-Asset Mapping Server: one mutation lock, one
// mapping store. No sender gating — any caller may read or mutate any
// mapping (spec.md §4.4).
type Server struct {
	mu      sync.Mutex
	store   *mapping.Store
	log     *logging.Logger
	metrics *metrics.Metrics
}

// Option customizes Server construction.
type Option func(*Server)

// WithMetrics wires a Prometheus handle into the dispatcher so every
// request and mutation is recorded.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds a Server over an already-loaded mapping store.
func New(store *mapping.Store, log *logging.Logger, opts ...Option) *Server {
	s := &Server{store: store, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle implements transport.Handler.
func (s *Server) Handle(_ context.Context, _ string, frame []string) ([]string, error) {
	if wire.IsIgnoredCommand(frameCommand(frame)) {
		return []string{frameCorrelationID(frame)}, nil
	}

	req, err := wire.DecodeRequest(frame)
	if err != nil {
		secwErr, _ := secwerrors.FromError(err)
		return wire.Failure(frameCorrelationID(frame), secwErr).Encode()
	}

	reply := s.dispatch(req)
	return reply.Encode()
}

func frameCommand(frame []string) string {
	if len(frame) < 2 {
		return ""
	}
	return frame[1]
}

func frameCorrelationID(frame []string) string {
	if len(frame) < 1 {
		return ""
	}
	return frame[0]
}

func (s *Server) dispatch(req *wire.Request) (reply wire.Reply) {
	start := time.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			if s.log != nil {
				s.log.Error("recovered panic handling %s: %v", req.Command, r)
			}
			reply = wire.Failure(req.CorrelationID, secwerrors.New(secwerrors.CAMSGeneric, "internal error"))
		}
		if s.metrics != nil {
			s.metrics.RecordRequest("cams", req.Command, status, time.Since(start).Seconds())
		}
	}()

	payload, err := s.route(req)
	if err != nil {
		status = "error"
		secwErr, ok := secwerrors.FromError(err)
		if !ok {
			secwErr = secwerrors.New(secwerrors.CAMSGeneric, err.Error())
			if s.log != nil {
				s.log.Error("unrecognized error from %s: %v", req.Command, err)
			}
		}
		return wire.Failure(req.CorrelationID, secwErr)
	}
	return wire.OK(req.CorrelationID, payload)
}

func (s *Server) route(req *wire.Request) (string, error) {
	switch req.Command {
	case CmdCreateMapping:
		return s.handleCreate(req.Args)
	case CmdGetMapping:
		return s.handleGet(req.Args)
	case CmdUpdateMapping:
		return s.handleUpdate(req.Args)
	case CmdUpdatePortMapping:
		return s.handleUpdatePort(req.Args)
	case CmdUpdateCredentialMapping:
		return s.handleUpdateCredential(req.Args)
	case CmdUpdateStatusMapping:
		return s.handleUpdateStatus(req.Args)
	case CmdUpdateInfoMapping:
		return s.handleUpdateInfo(req.Args)
	case CmdRemoveMapping:
		return s.handleRemove(req.Args)
	case CmdGetAssetMappings:
		return s.handleGetAssetMappings(req.Args)
	case CmdGetMappings:
		return s.handleGetMappings(req.Args)
	case CmdGetAllMappings:
		return s.handleGetAllMappings()
	case CmdGetCredMappings:
		return s.handleGetCredMappings(req.Args)
	case CmdCountCredMappings:
		return s.handleCountCredMappings(req.Args)
	case CmdGetMappingsWithStatus:
		return s.handleGetMappingsWithStatus(req.Args)
	default:
		return "", secwerrors.UnsupportedCommand(secwerrors.CAMSUnsupportedCommand, req.Command)
	}
}

// Lock and Unlock expose the server's mutation lock as a sync.Locker so the
// SRR processor can serialize a restore against in-flight CAMS mutations.
func (s *Server) Lock()   { s.mu.Lock() }
func (s *Server) Unlock() { s.mu.Unlock() }

// Store exposes the underlying mapping store for the SRR processor.
func (s *Server) Store() *mapping.Store { return s.store }

func (s *Server) recordMutation(action string) {
	if s.metrics != nil {
		s.metrics.RecordMutation("cams", action)
	}
}

func requireArgs(args []string, n int) error {
	if len(args) < n {
		return secwerrors.BadCommandArgument(secwerrors.CAMSBadCommandArgument, "missing required argument")
	}
	return nil
}

func marshalMapping(m *mapping.Mapping) (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func marshalMappings(ms []*mapping.Mapping) (string, error) {
	return wire.MarshalJSONArray(ms)
}

func (s *Server) handleCreate(args []string) (string, error) {
	if err := requireArgs(args, 1); err != nil {
		return "", err
	}
	var m mapping.Mapping
	if err := json.Unmarshal([]byte(args[0]), &m); err != nil {
		return "", secwerrors.MappingInvalid(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Create(&m); err != nil {
		return "", err
	}
	if err := s.store.Save(); err != nil {
		return "", err
	}
	s.recordMutation("created")
	return "", nil
}

func (s *Server) handleGet(args []string) (string, error) {
	if err := requireArgs(args, 3); err != nil {
		return "", err
	}
	m, err := s.store.Get(args[0], args[1], args[2])
	if err != nil {
		return "", err
	}
	return marshalMapping(m)
}

func (s *Server) handleUpdate(args []string) (string, error) {
	if err := requireArgs(args, 1); err != nil {
		return "", err
	}
	var m mapping.Mapping
	if err := json.Unmarshal([]byte(args[0]), &m); err != nil {
		return "", secwerrors.MappingInvalid(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Update(&m); err != nil {
		return "", err
	}
	if err := s.store.Save(); err != nil {
		return "", err
	}
	s.recordMutation("updated")
	return "", nil
}

func (s *Server) handleUpdatePort(args []string) (string, error) {
	if err := requireArgs(args, 4); err != nil {
		return "", err
	}
	port, err := strconv.Atoi(args[3])
	if err != nil {
		return "", secwerrors.BadCommandArgument(secwerrors.CAMSBadCommandArgument, "port must be an integer")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.UpdatePort(args[0], args[1], args[2], port); err != nil {
		return "", err
	}
	if err := s.store.Save(); err != nil {
		return "", err
	}
	s.recordMutation("updated")
	return "", nil
}

func (s *Server) handleUpdateCredential(args []string) (string, error) {
	if err := requireArgs(args, 4); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.UpdateCredential(args[0], args[1], args[2], args[3]); err != nil {
		return "", err
	}
	if err := s.store.Save(); err != nil {
		return "", err
	}
	s.recordMutation("updated")
	return "", nil
}

func (s *Server) handleUpdateStatus(args []string) (string, error) {
	if err := requireArgs(args, 4); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.UpdateStatus(args[0], args[1], args[2], mapping.Status(args[3])); err != nil {
		return "", err
	}
	if err := s.store.Save(); err != nil {
		return "", err
	}
	s.recordMutation("updated")
	return "", nil
}

func (s *Server) handleUpdateInfo(args []string) (string, error) {
	if err := requireArgs(args, 4); err != nil {
		return "", err
	}
	var info map[string]string
	if err := json.Unmarshal([]byte(args[3]), &info); err != nil {
		return "", secwerrors.MappingInvalid(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.UpdateInfo(args[0], args[1], args[2], info); err != nil {
		return "", err
	}
	if err := s.store.Save(); err != nil {
		return "", err
	}
	s.recordMutation("updated")
	return "", nil
}

func (s *Server) handleRemove(args []string) (string, error) {
	if err := requireArgs(args, 3); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Remove(args[0], args[1], args[2]); err != nil {
		return "", err
	}
	if err := s.store.Save(); err != nil {
		return "", err
	}
	s.recordMutation("removed")
	return "", nil
}

func (s *Server) handleGetAssetMappings(args []string) (string, error) {
	if err := requireArgs(args, 1); err != nil {
		return "", err
	}
	return marshalMappings(s.store.ByAsset(args[0]))
}

func (s *Server) handleGetMappings(args []string) (string, error) {
	if err := requireArgs(args, 2); err != nil {
		return "", err
	}
	return marshalMappings(s.store.ByAssetAndService(args[0], args[1]))
}

func (s *Server) handleGetAllMappings() (string, error) {
	return marshalMappings(s.store.All())
}

func (s *Server) handleGetCredMappings(args []string) (string, error) {
	if err := requireArgs(args, 1); err != nil {
		return "", err
	}
	return marshalMappings(s.store.ByCredential(args[0]))
}

func (s *Server) handleCountCredMappings(args []string) (string, error) {
	if err := requireArgs(args, 1); err != nil {
		return "", err
	}
	return strconv.Itoa(s.store.CountByCredential(args[0])), nil
}

func (s *Server) handleGetMappingsWithStatus(args []string) (string, error) {
	if err := requireArgs(args, 1); err != nil {
		return "", err
	}
	return marshalMappings(s.store.ByStatus(mapping.Status(args[0])))
}
