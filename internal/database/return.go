package repository

import (
	"NovaCS/entity"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetUserReturns returns a user's return records, newest first.
func (m *MongoDB) GetUserReturns(userID string) ([]entity.ReturnRecord, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(returnsCollection)

	filter := bson.D{{"user_id", userID}}
	opts := options.Find().SetSort(bson.D{{"created_at", -1}})

	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find returns: %w", err)
	}
	defer cursor.Close(m.ctx)

	var records []entity.ReturnRecord
	if err = cursor.All(m.ctx, &records); err != nil {
		return nil, fmt.Errorf("mongodb decode returns: %w", err)
	}

	return records, nil
}

// GetActiveReturn finds the non-terminal return for an order, the one
// the eligibility evaluator cares about. ErrNotFound when none exists.
func (m *MongoDB) GetActiveReturn(orderID string) (entity.ReturnRecord, error) {
	connection, err := m.connect()
	if err != nil {
		return entity.ReturnRecord{}, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(returnsCollection)

	filter := bson.D{
		{"order_id", orderID},
		{"status", bson.D{{"$nin", bson.A{entity.ReturnRejected}}}},
	}
	opts := options.FindOne().SetSort(bson.D{{"created_at", -1}})

	var record entity.ReturnRecord
	err = collection.FindOne(m.ctx, filter, opts).Decode(&record)
	if err != nil {
		return entity.ReturnRecord{}, m.findError(err)
	}

	return record, nil
}

func (m *MongoDB) SaveReturn(record entity.ReturnRecord) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	collection := connection.Database(m.database).Collection(returnsCollection)
	opts := options.Replace().SetUpsert(true)
	if _, err = collection.ReplaceOne(m.ctx, bson.D{{"_id", record.ID}}, record, opts); err != nil {
		return fmt.Errorf("mongodb upsert return: %w", err)
	}

	return nil
}

func (m *MongoDB) DeleteReturn(id string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(returnsCollection)

	result, err := collection.DeleteOne(m.ctx, bson.D{{"_id", id}})
	if err != nil {
		return fmt.Errorf("mongodb delete return: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// MarkReturnRefunded moves a return to its terminal refunded state and
// records the refunded amount.
func (m *MongoDB) MarkReturnRefunded(id string, amount int64) (entity.ReturnRecord, error) {
	connection, err := m.connect()
	if err != nil {
		return entity.ReturnRecord{}, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(returnsCollection)

	update := bson.D{{"$set", bson.D{
		{"status", entity.ReturnSuccess},
		{"refund_status", entity.ReturnRefunded},
		{"refund_amount", amount},
	}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var record entity.ReturnRecord
	err = collection.FindOneAndUpdate(m.ctx, bson.D{{"_id", id}}, update, opts).Decode(&record)
	if err != nil {
		return entity.ReturnRecord{}, m.findError(err)
	}

	return record, nil
}
