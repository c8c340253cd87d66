// Package sws implements the Security Wallet Server: the typed-document
// portfolio store's command dispatcher, access gating, and mutation lock
// (spec.md §4.3).
package sws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/systmms/secwallet/internal/document"
	"github.com/systmms/secwallet/internal/logging"
	"github.com/systmms/secwallet/internal/metrics"
	"github.com/systmms/secwallet/internal/notify"
	"github.com/systmms/secwallet/internal/policyconfig"
	"github.com/systmms/secwallet/internal/portfolio"
	"github.com/systmms/secwallet/internal/secwerrors"
	"github.com/systmms/secwallet/internal/wire"
)

// Commands, exact strings per spec.md §4.3.
const (
	CmdGetPortfolioList      = "GET_PORTFOLIO_LIST"
	CmdGetConsumerUsages     = "GET_CONSUMER_USAGES"
	CmdGetProducerUsages     = "GET_PRODUCER_USAGES"
	CmdGetListWithoutSecret  = "GET_LIST_WITHOUT_SECRET"
	CmdGetListWithSecret     = "GET_LIST_WITH_SECRET"
	CmdGetWithoutSecret      = "GET_WITHOUT_SECRET"
	CmdGetWithoutSecretByName = "GET_WITHOUT_SECRET_BY_NAME"
	CmdGetWithSecret         = "GET_WITH_SECRET"
	CmdGetWithSecretByName   = "GET_WITH_SECRET_BY_NAME"
	CmdCreate                = "CREATE"
	CmdUpdate                = "UPDATE"
	CmdDelete                = "DELETE"
)

// Server is the Security Wallet Server: one mutation lock, one portfolio
// store, one notifier, one set of per-portfolio access policies.
type Server struct {
	mu       sync.Mutex // mutation lock, held across persist+notify (spec.md §5)
	store    *portfolio.Store
	policies map[string]*policyconfig.Config
	notifier *notify.Manager
	log      *logging.Logger
	metrics  *metrics.Metrics
}

// Option customizes Server construction.
type Option func(*Server)

// WithMetrics wires a Prometheus handle into the dispatcher so every
// request and mutation is recorded.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// New builds a Server over an already-loaded portfolio store and access
// policy set.
func New(store *portfolio.Store, policies map[string]*policyconfig.Config, notifier *notify.Manager, log *logging.Logger, opts ...Option) *Server {
	s := &Server{store: store, policies: policies, notifier: notifier, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle implements transport.Handler: routes one request frame to its
// command, returning the reply frame.
func (s *Server) Handle(ctx context.Context, sender string, frame []string) ([]string, error) {
	if wire.IsIgnoredCommand(frameCommand(frame)) {
		return []string{frameCorrelationID(frame)}, nil
	}

	req, err := wire.DecodeRequest(frame)
	if err != nil {
		secwErr, _ := secwerrors.FromError(err)
		return wire.Failure(frameCorrelationID(frame), secwErr).Encode()
	}

	reply := s.dispatch(ctx, sender, req)
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

func (s *Server) dispatch(ctx context.Context, sender string, req *wire.Request) (reply wire.Reply) {
	start := time.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			if s.log != nil {
				s.log.Error("recovered panic handling %s: %v", req.Command, r)
			}
			reply = wire.Failure(req.CorrelationID, secwerrors.New(secwerrors.SWSGeneric, "internal error"))
		}
		if s.metrics != nil {
			s.metrics.RecordRequest("sws", req.Command, status, time.Since(start).Seconds())
		}
	}()

	payload, err := s.route(ctx, sender, req)
	if err != nil {
		status = "error"
		secwErr, ok := secwerrors.FromError(err)
		if !ok {
			secwErr = secwerrors.New(secwerrors.SWSGeneric, err.Error())
			if s.log != nil {
				s.log.Error("unrecognized error from %s: %v", req.Command, err)
			}
		}
		return wire.Failure(req.CorrelationID, secwErr)
	}
	return wire.OK(req.CorrelationID, payload)
}

func (s *Server) route(ctx context.Context, sender string, req *wire.Request) (string, error) {
	switch req.Command {
	case CmdGetPortfolioList:
		return s.handleGetPortfolioList()
	case CmdGetConsumerUsages:
		return s.handleGetUsages(sender, req.Args, policyconfig.RoleConsumer)
	case CmdGetProducerUsages:
		return s.handleGetUsages(sender, req.Args, policyconfig.RoleProducer)
	case CmdGetListWithoutSecret:
		return s.handleGetListWithoutSecret(req.Args)
	case CmdGetListWithSecret:
		return s.handleGetListWithSecret(sender, req.Args)
	case CmdGetWithoutSecret:
		return s.handleGetOne(req.Args, byID, false, "")
	case CmdGetWithoutSecretByName:
		return s.handleGetOne(req.Args, byName, false, "")
	case CmdGetWithSecret:
		return s.handleGetOne(req.Args, byID, true, sender)
	case CmdGetWithSecretByName:
		return s.handleGetOne(req.Args, byName, true, sender)
	case CmdCreate:
		return s.handleCreate(ctx, sender, req.Args)
	case CmdUpdate:
		return s.handleUpdate(ctx, sender, req.Args)
	case CmdDelete:
		return s.handleDelete(ctx, sender, req.Args)
	default:
		return "", secwerrors.UnsupportedCommand(secwerrors.SWSUnsupportedCommand, req.Command)
	}
}

func (s *Server) handleGetPortfolioList() (string, error) {
	return wire.MarshalJSONArray(s.store.Names())
}

func (s *Server) handleGetUsages(sender string, args []string, role policyconfig.Role) (string, error) {
	if len(args) < 1 {
		return "", secwerrors.BadCommandArgument(secwerrors.SWSBadCommandArgument, "portfolio argument required")
	}
	cfg, err := s.policyFor(args[0])
	if err != nil {
		return "", err
	}

	allowed := cfg.AllowedUsages(sender, role)
	usages := make([]string, 0, len(allowed))
	for u := range allowed {
		usages = append(usages, u)
	}
	return wire.MarshalJSONArray(usages)
}

// Lock and Unlock expose the server's mutation lock as a sync.Locker so the
// SRR processor can serialize a restore against in-flight SWS mutations
// (spec.md §5: "the SRR queue is a separate task that acquires the same
// mutation lock").
func (s *Server) Lock()   { s.mu.Lock() }
func (s *Server) Unlock() { s.mu.Unlock() }

// Store exposes the underlying portfolio store for the SRR processor.
func (s *Server) Store() *portfolio.Store { return s.store }

func (s *Server) policyFor(portfolioName string) (*policyconfig.Config, error) {
	cfg, ok := s.policies[portfolioName]
	if !ok {
		return nil, secwerrors.UnknownPortfolio(portfolioName)
	}
	return cfg, nil
}

type lookupKind int

const (
	byID lookupKind = iota
	byName
)

func marshalDoc(doc *document.Document, withSecret bool) (string, error) {
	var raw []byte
	var err error
	if withSecret {
		raw, err = doc.EncodeWithSecret()
	} else {
		raw, err = doc.EncodeWithoutSecret()
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func publicProjection(doc *document.Document) map[string]interface{} {
	raw, err := doc.EncodeWithoutSecret()
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	_ = json.Unmarshal(raw, &m)
	return m
}
