package transport

import "fmt"

type unknownAgentError struct {
	agentName string
}

func (e *unknownAgentError) Error() string {
	return fmt.Sprintf("transport: no handler registered for agent %q", e.agentName)
}

func errUnknownAgent(agentName string) error {
	return &unknownAgentError{agentName: agentName}
}
