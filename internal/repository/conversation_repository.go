package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"helpdesk-insights-be/internal/database"
	"helpdesk-insights-be/internal/models"
)

type ConversationRepository struct {
	collection *mongo.Collection
}

func NewConversationRepository(db *database.MongoDB) *ConversationRepository {
	return &ConversationRepository{
		collection: db.Conversations(),
	}
}

func (r *ConversationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "inboxId", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("idx_inbox_created"),
	})
	if err != nil {
		return fmt.Errorf("create conversation indexes: %w", err)
	}
	return nil
}

func summarizedFilter(w Window) bson.M {
	return w.filter(bson.M{"aiSummary": bson.M{"$ne": nil}})
}

// ListSummarized returns conversations of the window that carry a summary, newest
// first. The reason is returned as stored; callers validate it.
func (r *ConversationRepository) ListSummarized(ctx context.Context, w Window) ([]models.Conversation, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetProjection(bson.M{"inboxId": 1, "createdAt": 1, "aiSummary.reason": 1})
	if w.Limit > 0 {
		findOptions.SetLimit(w.Limit)
	}

	cursor, err := r.collection.Find(ctx, summarizedFilter(w), findOptions)
	if err != nil {
		return nil, fmt.Errorf("find summarized conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var conversations []models.Conversation
	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}
	return conversations, nil
}
