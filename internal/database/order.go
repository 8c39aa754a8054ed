package repository

import (
	"NovaCS/entity"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (m *MongoDB) GetOrder(id string) (entity.Order, error) {
	connection, err := m.connect()
	if err != nil {
		return entity.Order{}, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(ordersCollection)

	var order entity.Order
	err = collection.FindOne(m.ctx, bson.D{{"_id", id}}).Decode(&order)
	if err != nil {
		return entity.Order{}, m.findError(err)
	}

	return order, nil
}

// GetUserOrders returns a user's orders, newest first.
func (m *MongoDB) GetUserOrders(userID string) ([]entity.Order, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(ordersCollection)

	filter := bson.D{{"user_id", userID}}
	opts := options.Find().SetSort(bson.D{{"created_at", -1}})

	cursor, err := collection.Find(m.ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find orders: %w", err)
	}
	defer cursor.Close(m.ctx)

	var orders []entity.Order
	if err = cursor.All(m.ctx, &orders); err != nil {
		return nil, fmt.Errorf("mongodb decode orders: %w", err)
	}

	return orders, nil
}

func (m *MongoDB) SaveOrder(order entity.Order) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(ordersCollection)
	opts := options.Replace().SetUpsert(true)
	if _, err = collection.ReplaceOne(m.ctx, bson.D{{"_id", order.ID}}, order, opts); err != nil {
		return fmt.Errorf("mongodb upsert order: %w", err)
	}

	return nil
}
