package repository

import (
	"NovaCS/entity"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SaveMessage upserts a message under its client-minted id. A retry of
// the same send replaces the earlier document instead of duplicating
// it. The conversation's last_content is refreshed in the same call.
func (m *MongoDB) SaveMessage(msg entity.Message) (entity.Message, error) {
	connection, err := m.connect()
	if err != nil {
		return entity.Message{}, err
	}
	defer m.disconnect(connection)

	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now

	collection := connection.Database(m.database).Collection(messagesCollection)

	filter := bson.D{{"_id", msg.ID}}
	opts := options.Replace().SetUpsert(true)
	if _, err = collection.ReplaceOne(m.ctx, filter, msg, opts); err != nil {
		return entity.Message{}, fmt.Errorf("mongodb upsert message: %w", err)
	}

	preview := msg.Content
	if preview == "" && msg.HasAudio() {
		preview = "[voice message]"
	}
	conversations := connection.Database(m.database).Collection(conversationsCollection)
	update := bson.D{{"$set", bson.D{{"last_content", preview}}}}
	if _, err = conversations.UpdateOne(m.ctx, bson.D{{"_id", msg.ConversationID}}, update); err != nil {
		return entity.Message{}, fmt.Errorf("mongodb update last content: %w", err)
	}

	return msg, nil
}

// UpdateTranscript fills in the transcription result for a voice
// message once the side-channel produces it.
func (m *MongoDB) UpdateTranscript(messageID, transcript string) (entity.Message, error) {
	connection, err := m.connect()
	if err != nil {
		return entity.Message{}, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	filter := bson.D{{"_id", messageID}, {"attachment", bson.D{{"$ne", nil}}}}
	update := bson.D{{"$set", bson.D{
		{"attachment.transcript", transcript},
		{"updated_at", time.Now().UTC()},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated entity.Message
	err = collection.FindOneAndUpdate(m.ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		return entity.Message{}, m.findError(err)
	}

	return updated, nil
}

// GetMessages returns a conversation's messages oldest first.
func (m *MongoDB) GetMessages(conversationID string) ([]entity.Message, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	filter := bson.D{{"conversation_id", conversationID}}
	opts := options.Find().SetSort(bson.D{{"created_at", 1}})

	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find messages: %w", err)
	}
	defer cursor.Close(m.ctx)

	var messages []entity.Message
	if err = cursor.All(m.ctx, &messages); err != nil {
		return nil, fmt.Errorf("mongodb decode messages: %w", err)
	}

	return messages, nil
}

// GetRecentMessages returns the newest messages of a conversation in
// chronological order, for assistant context windows.
func (m *MongoDB) GetRecentMessages(conversationID string, limit int) ([]entity.Message, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	filter := bson.D{{"conversation_id", conversationID}}
	opts := options.Find().
		SetSort(bson.D{{"created_at", -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find recent messages: %w", err)
	}
	defer cursor.Close(m.ctx)

	var messages []entity.Message
	if err = cursor.All(m.ctx, &messages); err != nil {
		return nil, fmt.Errorf("mongodb decode recent messages: %w", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// EnsureMessageIndexes creates indexes for the messages collection.
func (m *MongoDB) EnsureMessageIndexes() error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	index := mongo.IndexModel{
		Keys: bson.D{
			{"conversation_id", 1},
			{"created_at", 1},
		},
	}

	_, err = collection.Indexes().CreateOne(m.ctx, index)
	if err != nil {
		return fmt.Errorf("mongodb create message index: %w", err)
	}

	return nil
}
