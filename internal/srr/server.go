package srr

import (
	"context"
	"encoding/json"

	"github.com/systmms/secwallet/internal/secwerrors"
	"github.com/systmms/secwallet/internal/wire"
)

// Commands on the SRR messaging channel (spec.md §4.5: "Both servers expose
// save and restore queries on a separate messaging channel").
const (
	CmdSave    = "SAVE"
	CmdRestore = "RESTORE"
)

// Server wraps a Processor with the same request/reply wire framing used
// by SWS and CAMS, so the SRR channel can be registered on the same
// transport under its own agent name.
type Server struct {
	processor *Processor
}

// NewServer builds a Server over an already-constructed Processor.
func NewServer(processor *Processor) *Server {
	return &Server{processor: processor}
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

func (s *Server) dispatch(req *wire.Request) wire.Reply {
	payload, err := s.route(req)
	if err != nil {
		secwErr, ok := secwerrors.FromError(err)
		if !ok {
			secwErr = secwerrors.New(secwerrors.SWSGeneric, err.Error())
		}
		return wire.Failure(req.CorrelationID, secwErr)
	}
	return wire.OK(req.CorrelationID, payload)
}

func (s *Server) route(req *wire.Request) (string, error) {
	switch req.Command {
	case CmdSave:
		return s.handleSave(req.Args)
	case CmdRestore:
		return s.handleRestore(req.Args)
	default:
		return "", secwerrors.UnsupportedCommand(secwerrors.SWSUnsupportedCommand, req.Command)
	}
}

func (s *Server) handleSave(args []string) (string, error) {
	if len(args) < 2 {
		return "", secwerrors.BadCommandArgument(secwerrors.SWSBadCommandArgument, "features and passphrase arguments required")
	}
	var features []string
	if err := json.Unmarshal([]byte(args[0]), &features); err != nil {
		return "", secwerrors.BadCommandArgument(secwerrors.SWSBadCommandArgument, "features must be a JSON string array")
	}

	results := s.processor.Save(features, args[1])
	raw, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *Server) handleRestore(args []string) (string, error) {
	if len(args) < 2 {
		return "", secwerrors.BadCommandArgument(secwerrors.SWSBadCommandArgument, "requests and passphrase arguments required")
	}
	var requests []RestoreRequest
	if err := json.Unmarshal([]byte(args[0]), &requests); err != nil {
		return "", secwerrors.BadCommandArgument(secwerrors.SWSBadCommandArgument, "requests must be a JSON array")
	}

	results := s.processor.Restore(requests, args[1])
	raw, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
