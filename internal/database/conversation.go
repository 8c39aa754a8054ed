package repository

import (
	"NovaCS/entity"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetConversations returns all conversations, most recent first.
func (m *MongoDB) GetConversations() ([]entity.Conversation, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(conversationsCollection)

	opts := options.Find().SetSort(bson.D{{"created_at", -1}})
	cursor, err := collection.Find(m.ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find conversations: %w", err)
	}
	defer cursor.Close(m.ctx)

	var conversations []entity.Conversation
	if err = cursor.All(m.ctx, &conversations); err != nil {
		return nil, fmt.Errorf("mongodb decode conversations: %w", err)
	}

	return conversations, nil
}

func (m *MongoDB) GetConversation(id string) (entity.Conversation, error) {
	connection, err := m.connect()
	if err != nil {
		return entity.Conversation{}, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(conversationsCollection)

	var conv entity.Conversation
	err = collection.FindOne(m.ctx, bson.D{{"_id", id}}).Decode(&conv)
	if err != nil {
		return entity.Conversation{}, m.findError(err)
	}

	return conv, nil
}

func (m *MongoDB) SaveConversation(conv entity.Conversation) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now().UTC()
	}
	if conv.Status == "" {
		conv.Status = entity.StatusAI
	}

	collection := connection.Database(m.database).Collection(conversationsCollection)
	opts := options.Replace().SetUpsert(true)
	if _, err = collection.ReplaceOne(m.ctx, bson.D{{"_id", conv.ID}}, conv, opts); err != nil {
		return fmt.Errorf("mongodb upsert conversation: %w", err)
	}

	return nil
}

// AssignConversation claims a conversation for an agent. The filter is
// the exclusivity guarantee: it only matches while the conversation is
// unassigned and in ai or pending_agent, so concurrent claims resolve
// to exactly one winner inside the database. The loser gets
// ErrConversationAssigned plus the winner's current document.
func (m *MongoDB) AssignConversation(conversationID, agentID string) (entity.Conversation, error) {
	connection, err := m.connect()
	if err != nil {
		return entity.Conversation{}, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(conversationsCollection)

	filter := bson.D{
		{"_id", conversationID},
		{"status", bson.D{{"$in", bson.A{entity.StatusAI, entity.StatusPendingAgent}}}},
	}
	update := bson.D{{"$set", bson.D{
		{"status", entity.StatusAgent},
		{"assigned_agent_id", agentID},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var conv entity.Conversation
	err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&conv)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return entity.Conversation{}, fmt.Errorf("mongodb assign conversation: %w", err)
	}

	// No match: either the conversation is gone or someone else won.
	current, err := m.GetConversation(conversationID)
	if err != nil {
		return entity.Conversation{}, err
	}
	return current, ErrConversationAssigned
}

// ReleaseConversation hands a conversation back to automated handling.
// Only the current assignee matches the filter.
func (m *MongoDB) ReleaseConversation(conversationID, agentID string) (entity.Conversation, error) {
	connection, err := m.connect()
	if err != nil {
		return entity.Conversation{}, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(conversationsCollection)

	filter := bson.D{
		{"_id", conversationID},
		{"status", entity.StatusAgent},
		{"assigned_agent_id", agentID},
	}
	update := bson.D{{"$set", bson.D{
		{"status", entity.StatusAI},
		{"assigned_agent_id", ""},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var conv entity.Conversation
	err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&conv)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return entity.Conversation{}, fmt.Errorf("mongodb release conversation: %w", err)
	}

	if _, err := m.GetConversation(conversationID); err != nil {
		return entity.Conversation{}, err
	}
	return entity.Conversation{}, ErrNotAssignee
}

// EscalateConversation moves an ai conversation to pending_agent when
// the assistant detects a transfer request. A no-op in any other state.
func (m *MongoDB) EscalateConversation(conversationID string) (entity.Conversation, error) {
	connection, err := m.connect()
	if err != nil {
		return entity.Conversation{}, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(conversationsCollection)

	filter := bson.D{
		{"_id", conversationID},
		{"status", entity.StatusAI},
	}
	update := bson.D{{"$set", bson.D{{"status", entity.StatusPendingAgent}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var conv entity.Conversation
	err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return m.GetConversation(conversationID)
		}
		return entity.Conversation{}, fmt.Errorf("mongodb escalate conversation: %w", err)
	}

	return conv, nil
}

// CloseConversation marks a conversation closed from any state.
func (m *MongoDB) CloseConversation(conversationID string) (entity.Conversation, error) {
	connection, err := m.connect()
	if err != nil {
		return entity.Conversation{}, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(conversationsCollection)

	update := bson.D{{"$set", bson.D{
		{"status", entity.StatusClosed},
		{"assigned_agent_id", ""},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var conv entity.Conversation
	err = collection.FindOneAndUpdate(m.ctx, bson.D{{"_id", conversationID}}, update, opts).Decode(&conv)
	if err != nil {
		return entity.Conversation{}, m.findError(err)
	}

	return conv, nil
}
