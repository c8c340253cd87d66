package sws

import (
	"context"
	"encoding/json"

	"github.com/systmms/secwallet/internal/document"
	"github.com/systmms/secwallet/internal/notify"
	"github.com/systmms/secwallet/internal/policyconfig"
	"github.com/systmms/secwallet/internal/secwerrors"
	"github.com/systmms/secwallet/internal/wire"
)

func contains(slice []string, v string) bool {
	for _, s := range slice {
		if s == v {
			return true
		}
	}
	return false
}

func (s *Server) handleGetListWithoutSecret(args []string) (string, error) {
	if len(args) < 1 {
		return "", secwerrors.BadCommandArgument(secwerrors.SWSBadCommandArgument, "portfolio argument required")
	}
	p, err := s.store.Get(args[0])
	if err != nil {
		return "", err
	}

	var usage string
	if len(args) >= 2 && args[1] != "" {
		usage = args[1]
		cfg, err := s.policyFor(args[0])
		if err != nil {
			return "", err
		}
		if !cfg.HasUsage(usage) {
			return "", secwerrors.UnknownUsageID(usage)
		}
	}

	var tag string
	if len(args) >= 3 && args[2] != "" {
		tag = args[2]
		if !p.HasTag(tag) {
			return "", secwerrors.UnknownTag(tag)
		}
	}

	docs := p.List()
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		if usage != "" && !contains(d.Usages, usage) {
			continue
		}
		if tag != "" && !contains(d.Tags, tag) {
			continue
		}
		raw, err := d.EncodeWithoutSecret()
		if err != nil {
			return "", err
		}
		out = append(out, raw)
	}
	return wire.MarshalJSONArray(out)
}

func (s *Server) handleGetListWithSecret(sender string, args []string) (string, error) {
	if len(args) < 1 {
		return "", secwerrors.BadCommandArgument(secwerrors.SWSBadCommandArgument, "portfolio argument required")
	}
	p, err := s.store.Get(args[0])
	if err != nil {
		return "", err
	}
	cfg, err := s.policyFor(args[0])
	if err != nil {
		return "", err
	}

	allowed := cfg.AllowedUsages(sender, policyconfig.RoleConsumer)
	if len(allowed) == 0 {
		return "", secwerrors.IllegalAccess("sender has no consumer usages on this portfolio")
	}

	var requestedUsage string
	if len(args) >= 2 {
		requestedUsage = args[1]
		if _, ok := allowed[requestedUsage]; !ok {
			return "", secwerrors.IllegalAccess("sender is not a consumer of the requested usage")
		}
	}

	docs := p.List()
	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		if requestedUsage != "" {
			if !contains(d.Usages, requestedUsage) {
				continue
			}
		} else if !anyUsageAllowed(d.Usages, allowed) {
			continue
		}
		raw, err := d.EncodeWithSecret()
		if err != nil {
			return "", err
		}
		out = append(out, raw)
	}
	return wire.MarshalJSONArray(out)
}

func anyUsageAllowed(usages []string, allowed map[string]struct{}) bool {
	for _, u := range usages {
		if _, ok := allowed[u]; ok {
			return true
		}
	}
	return false
}

func (s *Server) handleGetOne(args []string, kind lookupKind, withSecret bool, sender string) (string, error) {
	if len(args) < 2 {
		return "", secwerrors.BadCommandArgument(secwerrors.SWSBadCommandArgument, "portfolio and id/name arguments required")
	}
	p, err := s.store.Get(args[0])
	if err != nil {
		return "", err
	}

	var doc *document.Document
	if kind == byID {
		doc, err = p.GetByID(args[1])
	} else {
		doc, err = p.GetByName(args[1])
	}
	if err != nil {
		return "", err
	}

	if withSecret {
		cfg, err := s.policyFor(args[0])
		if err != nil {
			return "", err
		}
		allowed := cfg.AllowedUsages(sender, policyconfig.RoleConsumer)
		if len(allowed) == 0 || !anyUsageAllowed(doc.Usages, allowed) {
			return "", secwerrors.IllegalAccess("sender is not a consumer of any usage on this document")
		}
	}

	return marshalDoc(doc, withSecret)
}

func (s *Server) handleCreate(ctx context.Context, sender string, args []string) (string, error) {
	if len(args) < 2 {
		return "", secwerrors.BadCommandArgument(secwerrors.SWSBadCommandArgument, "portfolio and document arguments required")
	}
	portfolioName := args[0]

	doc, err := document.DecodeIncoming([]byte(args[1]))
	if err != nil {
		return "", err
	}

	cfg, err := s.policyFor(portfolioName)
	if err != nil {
		return "", err
	}
	allowed := cfg.AllowedUsages(sender, policyconfig.RoleProducer)
	for _, u := range doc.Usages {
		if _, ok := allowed[u]; !ok {
			return "", secwerrors.IllegalAccess("sender is not a producer of usage " + u)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.Get(portfolioName)
	if err != nil {
		return "", err
	}

	doc.ID = document.NewID()
	doc.Version = 1
	doc.HasSecret = true
	if err := p.Add(doc); err != nil {
		return "", err
	}
	if err := s.store.Save(); err != nil {
		return "", err
	}

	s.notify(notify.ActionCreated, portfolioName, nil, publicProjection(doc), nil, nil)
	return doc.ID, nil
}

func (s *Server) handleUpdate(ctx context.Context, sender string, args []string) (string, error) {
	if len(args) < 2 {
		return "", secwerrors.BadCommandArgument(secwerrors.SWSBadCommandArgument, "portfolio and document arguments required")
	}
	portfolioName := args[0]

	incoming, err := document.DecodeIncoming([]byte(args[1]))
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.Get(portfolioName)
	if err != nil {
		return "", err
	}
	existing, err := p.GetByID(incoming.ID)
	if err != nil {
		return "", err
	}

	cfg, err := s.policyFor(portfolioName)
	if err != nil {
		return "", err
	}
	allowed := cfg.AllowedUsages(sender, policyconfig.RoleProducer)
	delta := document.UsageDelta(existing.Usages, incoming.Usages)
	for _, u := range delta {
		if _, ok := allowed[u]; !ok {
			return "", secwerrors.IllegalAccess("sender is not a producer of usage " + u)
		}
	}

	oldPublic := publicProjection(existing)
	nonSecretChanged := !existing.NonSecretEquals(incoming)
	secretChanged := !existing.SecretEquals(incoming)

	incoming.HasSecret = true
	if err := p.Replace(incoming); err != nil {
		return "", err
	}
	if err := s.store.Save(); err != nil {
		return "", err
	}

	s.notify(notify.ActionUpdated, portfolioName, oldPublic, publicProjection(incoming), &nonSecretChanged, &secretChanged)
	return "OK", nil
}

func (s *Server) handleDelete(ctx context.Context, sender string, args []string) (string, error) {
	if len(args) < 2 {
		return "", secwerrors.BadCommandArgument(secwerrors.SWSBadCommandArgument, "portfolio and id arguments required")
	}
	portfolioName, id := args[0], args[1]

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.store.Get(portfolioName)
	if err != nil {
		return "", err
	}
	existing, err := p.GetByID(id)
	if err != nil {
		return "", err
	}

	cfg, err := s.policyFor(portfolioName)
	if err != nil {
		return "", err
	}
	allowed := cfg.AllowedUsages(sender, policyconfig.RoleProducer)
	for _, u := range existing.Usages {
		if _, ok := allowed[u]; !ok {
			return "", secwerrors.IllegalAccess("sender is not a producer of usage " + u)
		}
	}

	oldPublic := publicProjection(existing)
	if err := p.Remove(id); err != nil {
		return "", err
	}
	if err := s.store.Save(); err != nil {
		return "", err
	}

	s.notify(notify.ActionDeleted, portfolioName, oldPublic, nil, nil, nil)
	return "OK", nil
}

func (s *Server) notify(action notify.Action, portfolioName string, oldData, newData map[string]interface{}, nonSecretChanged, secretChanged *bool) {
	if s.metrics != nil {
		s.metrics.RecordMutation("sws", string(action))
	}
	if s.notifier == nil {
		return
	}
	s.notifier.Send(notify.Event{
		Action:           action,
		Portfolio:        portfolioName,
		OldData:          oldData,
		NewData:          newData,
		NonSecretChanged: nonSecretChanged,
		SecretChanged:    secretChanged,
	})
}
