package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/repository"
	"github.com/aigroupchat/voicechat-be/types"
)

// AgentService manages owner personas and their document scopes. It also
// implements the retrieval scope resolver: an agent id narrows search to
// the documents linked to that agent.
type AgentService struct {
	agents    repository.AgentRepo
	documents repository.DocumentRepo
	logger    *zap.Logger
}

func NewAgentService(agents repository.AgentRepo, documents repository.DocumentRepo, logger *zap.Logger) *AgentService {
	return &AgentService{
		agents:    agents,
		documents: documents,
		logger:    logger,
	}
}

// SeedDefaults creates the built-in personas under the sentinel owner.
// Idempotent: an owner that already has defaults is left alone.
func (s *AgentService) SeedDefaults(ctx context.Context) error {
	existing, err := s.agents.ListAgents(ctx, types.DefaultAgentOwner)
	if err != nil {
		return fmt.Errorf("failed to list default agents: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, template := range AgentTemplates() {
		agent := &types.Agent{
			ID:           uuid.NewString(),
			OwnerID:      types.DefaultAgentOwner,
			Name:         template.Name,
			Instructions: template.Instructions,
			VoiceID:      template.VoiceID,
			Greeting:     template.Greeting,
			IsDefault:    true,
			CreatedAt:    time.Now(),
		}
		if err := s.agents.CreateAgent(ctx, agent); err != nil {
			return fmt.Errorf("failed to seed agent %s: %w", template.Name, err)
		}
	}
	s.logger.Info("seeded default agents", zap.Int("count", len(agentTemplates)))
	return nil
}

func (s *AgentService) CreateAgent(ctx context.Context, ownerID string, req types.CreateAgentRequest) (*types.Agent, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("agent name is required: %w", types.ErrInvalidInput)
	}

	template := AgentTemplateByType(req.TemplateType)
	agent := &types.Agent{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Name:         req.Name,
		Instructions: template.Instructions,
		VoiceID:      template.VoiceID,
		Greeting:     template.Greeting,
		CreatedAt:    time.Now(),
	}
	if strings.TrimSpace(req.Instructions) != "" {
		agent.Instructions = req.Instructions
	}
	if strings.TrimSpace(req.VoiceID) != "" {
		agent.VoiceID = req.VoiceID
	}
	if strings.TrimSpace(req.Greeting) != "" {
		agent.Greeting = req.Greeting
	}

	if err := s.agents.CreateAgent(ctx, agent); err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return agent, nil
}

// GetAgent returns an agent visible to the owner. Default agents are
// visible to everyone; other owners' agents are not.
func (s *AgentService) GetAgent(ctx context.Context, ownerID, id string) (*types.Agent, error) {
	agent, err := s.agents.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if agent.OwnerID != ownerID && agent.OwnerID != types.DefaultAgentOwner {
		return nil, fmt.Errorf("agent %s: %w", id, types.ErrForbidden)
	}
	return agent, nil
}

// ListAgents returns the owner's agents plus the built-in defaults.
func (s *AgentService) ListAgents(ctx context.Context, ownerID string) ([]*types.Agent, error) {
	agents, err := s.agents.ListAgents(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defaults, err := s.agents.ListAgents(ctx, types.DefaultAgentOwner)
	if err != nil {
		return nil, err
	}
	return append(agents, defaults...), nil
}

// DeleteAgent removes the agent and its document links. Linked documents
// themselves are untouched.
func (s *AgentService) DeleteAgent(ctx context.Context, ownerID, id string) error {
	agent, err := s.agents.GetAgent(ctx, id)
	if err != nil {
		return err
	}
	if agent.IsDefault {
		return fmt.Errorf("default agents cannot be deleted: %w", types.ErrForbidden)
	}
	if agent.OwnerID != ownerID {
		return fmt.Errorf("agent %s: %w", id, types.ErrForbidden)
	}

	if err := s.agents.DeleteAgent(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.agents.DeleteLinksByAgent(ctx, id); err != nil {
		s.logger.Warn("failed to delete agent links",
			zap.String("agent_id", id),
			zap.Error(err))
	}
	return nil
}

// LinkDocuments grants the agent access to the given documents. Every
// document must exist and belong to the owner; relinking is a no-op.
func (s *AgentService) LinkDocuments(ctx context.Context, ownerID, agentID string, documentIDs []string) error {
	agent, err := s.agents.GetAgent(ctx, agentID)
	if err != nil {
		return err
	}
	if agent.OwnerID != ownerID {
		return fmt.Errorf("agent %s: %w", agentID, types.ErrForbidden)
	}

	for _, docID := range documentIDs {
		if _, err := s.documents.GetDocument(ctx, ownerID, docID); err != nil {
			return err
		}
	}
	return s.agents.LinkDocuments(ctx, agentID, documentIDs)
}

func (s *AgentService) UnlinkDocument(ctx context.Context, ownerID, agentID, documentID string) error {
	agent, err := s.agents.GetAgent(ctx, agentID)
	if err != nil {
		return err
	}
	if agent.OwnerID != ownerID {
		return fmt.Errorf("agent %s: %w", agentID, types.ErrForbidden)
	}
	return s.agents.UnlinkDocument(ctx, agentID, documentID)
}

func (s *AgentService) ListAgentDocuments(ctx context.Context, ownerID, agentID string) ([]string, error) {
	agent, err := s.agents.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if agent.OwnerID != ownerID && agent.OwnerID != types.DefaultAgentOwner {
		return nil, fmt.Errorf("agent %s: %w", agentID, types.ErrForbidden)
	}
	return s.agents.ListAgentDocuments(ctx, agentID)
}

// ResolveScope maps an optional agent id onto a document allow-list for
// retrieval. No agent means the whole corpus; an agent with zero linked
// documents restricts search to nothing.
func (s *AgentService) ResolveScope(ctx context.Context, ownerID, agentID string) ([]string, bool, error) {
	if agentID == "" {
		return nil, false, nil
	}
	agent, err := s.agents.GetAgent(ctx, agentID)
	if err != nil {
		return nil, false, err
	}
	if agent.OwnerID != ownerID && agent.OwnerID != types.DefaultAgentOwner {
		return nil, false, fmt.Errorf("agent %s: %w", agentID, types.ErrForbidden)
	}

	allowed, err := s.agents.ListAgentDocuments(ctx, agentID)
	if err != nil {
		return nil, false, err
	}
	return allowed, true, nil
}
