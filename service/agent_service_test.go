package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aigroupchat/voicechat-be/types"
)

type memAgentRepo struct {
	agents map[string]*types.Agent
	links  map[string][]string
}

func newMemAgentRepo() *memAgentRepo {
	return &memAgentRepo{
		agents: make(map[string]*types.Agent),
		links:  make(map[string][]string),
	}
}

func (r *memAgentRepo) CreateAgent(ctx context.Context, agent *types.Agent) error {
	r.agents[agent.ID] = agent
	return nil
}

func (r *memAgentRepo) GetAgent(ctx context.Context, id string) (*types.Agent, error) {
	agent, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", id, types.ErrNotFound)
	}
	return agent, nil
}

func (r *memAgentRepo) ListAgents(ctx context.Context, ownerID string) ([]*types.Agent, error) {
	var agents []*types.Agent
	for _, agent := range r.agents {
		if agent.OwnerID == ownerID {
			agents = append(agents, agent)
		}
	}
	return agents, nil
}

func (r *memAgentRepo) DeleteAgent(ctx context.Context, ownerID, id string) error {
	agent, ok := r.agents[id]
	if !ok || agent.OwnerID != ownerID {
		return fmt.Errorf("agent %s: %w", id, types.ErrNotFound)
	}
	delete(r.agents, id)
	return nil
}

func (r *memAgentRepo) LinkDocuments(ctx context.Context, agentID string, documentIDs []string) error {
	existing := make(map[string]struct{}, len(r.links[agentID]))
	for _, id := range r.links[agentID] {
		existing[id] = struct{}{}
	}
	for _, id := range documentIDs {
		if _, ok := existing[id]; !ok {
			r.links[agentID] = append(r.links[agentID], id)
			existing[id] = struct{}{}
		}
	}
	return nil
}

func (r *memAgentRepo) UnlinkDocument(ctx context.Context, agentID, documentID string) error {
	kept := r.links[agentID][:0]
	for _, id := range r.links[agentID] {
		if id != documentID {
			kept = append(kept, id)
		}
	}
	r.links[agentID] = kept
	return nil
}

func (r *memAgentRepo) ListAgentDocuments(ctx context.Context, agentID string) ([]string, error) {
	return r.links[agentID], nil
}

func (r *memAgentRepo) DeleteLinksByAgent(ctx context.Context, agentID string) error {
	delete(r.links, agentID)
	return nil
}

func (r *memAgentRepo) DeleteLinksByDocument(ctx context.Context, documentID string) error {
	for agentID := range r.links {
		r.UnlinkDocument(ctx, agentID, documentID)
	}
	return nil
}

type memDocumentRepo struct {
	docs map[string]*types.Document
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{docs: make(map[string]*types.Document)}
}

func (r *memDocumentRepo) CreateDocument(ctx context.Context, doc *types.Document) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memDocumentRepo) GetDocument(ctx context.Context, ownerID, id string) (*types.Document, error) {
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, fmt.Errorf("document %s: %w", id, types.ErrNotFound)
	}
	return doc, nil
}

func (r *memDocumentRepo) ListDocuments(ctx context.Context, ownerID string) ([]*types.Document, error) {
	var docs []*types.Document
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (r *memDocumentRepo) UpdateMetadata(ctx context.Context, ownerID, id string, metadata map[string]interface{}) error {
	doc, err := r.GetDocument(ctx, ownerID, id)
	if err != nil {
		return err
	}
	doc.Metadata = metadata
	return nil
}

func (r *memDocumentRepo) DeleteDocument(ctx context.Context, ownerID, id string) error {
	if _, err := r.GetDocument(ctx, ownerID, id); err != nil {
		return err
	}
	delete(r.docs, id)
	return nil
}

func newTestAgentService() (*AgentService, *memAgentRepo, *memDocumentRepo) {
	agents := newMemAgentRepo()
	docs := newMemDocumentRepo()
	return NewAgentService(agents, docs, zap.NewNop()), agents, docs
}

func TestSeedDefaults_Idempotent(t *testing.T) {
	svc, repo, _ := newTestAgentService()
	ctx := context.Background()

	require.NoError(t, svc.SeedDefaults(ctx))
	first, _ := repo.ListAgents(ctx, types.DefaultAgentOwner)
	require.Len(t, first, 3)

	require.NoError(t, svc.SeedDefaults(ctx))
	second, _ := repo.ListAgents(ctx, types.DefaultAgentOwner)
	assert.Len(t, second, 3)

	for _, agent := range second {
		assert.True(t, agent.IsDefault)
	}
}

func TestCreateAgent_FromTemplate(t *testing.T) {
	svc, _, _ := newTestAgentService()

	agent, err := svc.CreateAgent(context.Background(), "owner", types.CreateAgentRequest{
		Name:         "My Tutor",
		TemplateType: "socratic_tutor",
	})
	require.NoError(t, err)
	assert.Equal(t, "My Tutor", agent.Name)
	assert.Equal(t, "owner", agent.OwnerID)
	assert.Contains(t, agent.Instructions, "Sophie")
	assert.False(t, agent.IsDefault)
}

func TestCreateAgent_OverridesWin(t *testing.T) {
	svc, _, _ := newTestAgentService()

	agent, err := svc.CreateAgent(context.Background(), "owner", types.CreateAgentRequest{
		Name:         "Custom",
		Instructions: "Custom instructions.",
		VoiceID:      "custom-voice",
	})
	require.NoError(t, err)
	assert.Equal(t, "Custom instructions.", agent.Instructions)
	assert.Equal(t, "custom-voice", agent.VoiceID)
}

func TestCreateAgent_RequiresName(t *testing.T) {
	svc, _, _ := newTestAgentService()

	_, err := svc.CreateAgent(context.Background(), "owner", types.CreateAgentRequest{})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestGetAgent_CrossOwnerForbidden(t *testing.T) {
	svc, _, _ := newTestAgentService()
	ctx := context.Background()

	agent, err := svc.CreateAgent(ctx, "alice", types.CreateAgentRequest{Name: "A"})
	require.NoError(t, err)

	_, err = svc.GetAgent(ctx, "bob", agent.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestGetAgent_DefaultVisibleToEveryone(t *testing.T) {
	svc, repo, _ := newTestAgentService()
	ctx := context.Background()

	require.NoError(t, svc.SeedDefaults(ctx))
	defaults, _ := repo.ListAgents(ctx, types.DefaultAgentOwner)
	require.NotEmpty(t, defaults)

	agent, err := svc.GetAgent(ctx, "anyone", defaults[0].ID)
	require.NoError(t, err)
	assert.True(t, agent.IsDefault)
}

func TestDeleteAgent_DefaultRefused(t *testing.T) {
	svc, repo, _ := newTestAgentService()
	ctx := context.Background()

	require.NoError(t, svc.SeedDefaults(ctx))
	defaults, _ := repo.ListAgents(ctx, types.DefaultAgentOwner)

	err := svc.DeleteAgent(ctx, types.DefaultAgentOwner, defaults[0].ID)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestDeleteAgent_RemovesLinksKeepsDocuments(t *testing.T) {
	svc, repo, docs := newTestAgentService()
	ctx := context.Background()

	docs.CreateDocument(ctx, &types.Document{ID: "d1", OwnerID: "owner"})
	agent, err := svc.CreateAgent(ctx, "owner", types.CreateAgentRequest{Name: "A"})
	require.NoError(t, err)
	require.NoError(t, svc.LinkDocuments(ctx, "owner", agent.ID, []string{"d1"}))

	require.NoError(t, svc.DeleteAgent(ctx, "owner", agent.ID))

	assert.Empty(t, repo.links[agent.ID])
	_, err = docs.GetDocument(ctx, "owner", "d1")
	assert.NoError(t, err)
}

func TestLinkDocuments_UnknownDocumentRejected(t *testing.T) {
	svc, _, _ := newTestAgentService()
	ctx := context.Background()

	agent, err := svc.CreateAgent(ctx, "owner", types.CreateAgentRequest{Name: "A"})
	require.NoError(t, err)

	err = svc.LinkDocuments(ctx, "owner", agent.ID, []string{"missing"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestLinkDocuments_RelinkIsNoOp(t *testing.T) {
	svc, repo, docs := newTestAgentService()
	ctx := context.Background()

	docs.CreateDocument(ctx, &types.Document{ID: "d1", OwnerID: "owner"})
	agent, err := svc.CreateAgent(ctx, "owner", types.CreateAgentRequest{Name: "A"})
	require.NoError(t, err)

	require.NoError(t, svc.LinkDocuments(ctx, "owner", agent.ID, []string{"d1"}))
	require.NoError(t, svc.LinkDocuments(ctx, "owner", agent.ID, []string{"d1"}))

	assert.Len(t, repo.links[agent.ID], 1)
}

func TestResolveScope_NoAgentUnrestricted(t *testing.T) {
	svc, _, _ := newTestAgentService()

	allowed, restricted, err := svc.ResolveScope(context.Background(), "owner", "")
	require.NoError(t, err)
	assert.False(t, restricted)
	assert.Nil(t, allowed)
}

func TestResolveScope_ZeroLinksRestricted(t *testing.T) {
	svc, _, _ := newTestAgentService()
	ctx := context.Background()

	agent, err := svc.CreateAgent(ctx, "owner", types.CreateAgentRequest{Name: "A"})
	require.NoError(t, err)

	allowed, restricted, err := svc.ResolveScope(ctx, "owner", agent.ID)
	require.NoError(t, err)
	assert.True(t, restricted)
	assert.Empty(t, allowed)
}

func TestResolveScope_LinkedDocuments(t *testing.T) {
	svc, _, docs := newTestAgentService()
	ctx := context.Background()

	docs.CreateDocument(ctx, &types.Document{ID: "d1", OwnerID: "owner"})
	docs.CreateDocument(ctx, &types.Document{ID: "d2", OwnerID: "owner"})
	agent, err := svc.CreateAgent(ctx, "owner", types.CreateAgentRequest{Name: "A"})
	require.NoError(t, err)
	require.NoError(t, svc.LinkDocuments(ctx, "owner", agent.ID, []string{"d1", "d2"}))

	allowed, restricted, err := svc.ResolveScope(ctx, "owner", agent.ID)
	require.NoError(t, err)
	assert.True(t, restricted)
	assert.ElementsMatch(t, []string{"d1", "d2"}, allowed)
}

func TestResolveScope_CrossOwnerForbidden(t *testing.T) {
	svc, _, _ := newTestAgentService()
	ctx := context.Background()

	agent, err := svc.CreateAgent(ctx, "alice", types.CreateAgentRequest{Name: "A"})
	require.NoError(t, err)

	_, _, err = svc.ResolveScope(ctx, "bob", agent.ID)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestResolveScope_UnknownAgent(t *testing.T) {
	svc, _, _ := newTestAgentService()

	_, _, err := svc.ResolveScope(context.Background(), "owner", "ghost")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAgentTemplateByType_UnknownDefaultsToStudyPartner(t *testing.T) {
	template := AgentTemplateByType("nonsense")
	assert.Equal(t, "study_partner", template.Type)
	assert.Equal(t, "Alex", template.Name)

	sophie := AgentTemplateByType("socratic_tutor")
	assert.Equal(t, "Sophie", sophie.Name)
}
