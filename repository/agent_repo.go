package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/aigroupchat/voicechat-be/types"
)

type AgentRepo interface {
	CreateAgent(ctx context.Context, agent *types.Agent) error
	GetAgent(ctx context.Context, id string) (*types.Agent, error)
	ListAgents(ctx context.Context, ownerID string) ([]*types.Agent, error)
	DeleteAgent(ctx context.Context, ownerID, id string) error

	LinkDocuments(ctx context.Context, agentID string, documentIDs []string) error
	UnlinkDocument(ctx context.Context, agentID, documentID string) error
	ListAgentDocuments(ctx context.Context, agentID string) ([]string, error)
	DeleteLinksByAgent(ctx context.Context, agentID string) error
	DeleteLinksByDocument(ctx context.Context, documentID string) error
}

type agentRepo struct {
	agents *mongo.Collection
	links  *mongo.Collection
}

func NewAgentRepo(agents, links *mongo.Collection) AgentRepo {
	return &agentRepo{
		agents: agents,
		links:  links,
	}
}

func (r *agentRepo) CreateAgent(ctx context.Context, agent *types.Agent) error {
	_, err := r.agents.InsertOne(ctx, agent)
	return err
}

func (r *agentRepo) GetAgent(ctx context.Context, id string) (*types.Agent, error) {
	var agent types.Agent
	err := r.agents.FindOne(ctx, bson.M{"_id": id}).Decode(&agent)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("agent %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepo) ListAgents(ctx context.Context, ownerID string) ([]*types.Agent, error) {
	cursor, err := r.agents.Find(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var agents []*types.Agent
	for cursor.Next(ctx) {
		var agent types.Agent
		if err := cursor.Decode(&agent); err != nil {
			return nil, err
		}
		agents = append(agents, &agent)
	}
	return agents, cursor.Err()
}

func (r *agentRepo) DeleteAgent(ctx context.Context, ownerID, id string) error {
	result, err := r.agents.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("agent %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// LinkDocuments upserts pairs so relinking the same document is a no-op.
func (r *agentRepo) LinkDocuments(ctx context.Context, agentID string, documentIDs []string) error {
	if len(documentIDs) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(documentIDs))
	for _, docID := range documentIDs {
		filter := bson.M{"agent_id": agentID, "document_id": docID}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(filter).
			SetReplacement(types.AgentDocumentLink{AgentID: agentID, DocumentID: docID}).
			SetUpsert(true))
	}
	_, err := r.links.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

func (r *agentRepo) UnlinkDocument(ctx context.Context, agentID, documentID string) error {
	result, err := r.links.DeleteOne(ctx, bson.M{"agent_id": agentID, "document_id": documentID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("link %s->%s: %w", agentID, documentID, types.ErrNotFound)
	}
	return nil
}

func (r *agentRepo) ListAgentDocuments(ctx context.Context, agentID string) ([]string, error) {
	cursor, err := r.links.Find(ctx, bson.M{"agent_id": agentID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docIDs []string
	for cursor.Next(ctx) {
		var link types.AgentDocumentLink
		if err := cursor.Decode(&link); err != nil {
			return nil, err
		}
		docIDs = append(docIDs, link.DocumentID)
	}
	return docIDs, cursor.Err()
}

func (r *agentRepo) DeleteLinksByAgent(ctx context.Context, agentID string) error {
	_, err := r.links.DeleteMany(ctx, bson.M{"agent_id": agentID})
	return err
}

func (r *agentRepo) DeleteLinksByDocument(ctx context.Context, documentID string) error {
	_, err := r.links.DeleteMany(ctx, bson.M{"document_id": documentID})
	return err
}
