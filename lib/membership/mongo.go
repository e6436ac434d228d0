// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yaswanth65/task3Backend/lib/topic"
)

// MongoConfig locates the TaskFlow collections.
type MongoConfig struct {
	URI                     string
	Database                string
	TasksCollection         string
	ConversationsCollection string
	// Timeout bounds each lookup, and the initial connect and ping.
	Timeout time.Duration
	AppName string
}

// Mongo authorizes against the TaskFlow tasks and conversations
// collections.
type Mongo struct {
	client        *mongo.Client
	tasks         *mongo.Collection
	conversations *mongo.Collection
	timeout       time.Duration
	logger        *slog.Logger
}

// ConnectMongo dials the database and verifies it with a ping.
func ConnectMongo(ctx context.Context, config MongoConfig, logger *slog.Logger) (*Mongo, error) {
	if config.URI == "" || config.Database == "" {
		return nil, errors.New("membership: mongo uri and database are required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetConnectTimeout(config.Timeout).
		SetServerSelectionTimeout(config.Timeout)
	if config.AppName != "" {
		clientOptions.SetAppName(config.AppName)
	}

	connectCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()
	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	database := client.Database(config.Database)
	logger.Info("membership database connected",
		"database", config.Database,
		"tasks", config.TasksCollection,
		"conversations", config.ConversationsCollection,
	)
	return &Mongo{
		client:        client,
		tasks:         database.Collection(config.TasksCollection),
		conversations: database.Collection(config.ConversationsCollection),
		timeout:       config.Timeout,
		logger:        logger,
	}, nil
}

// Close disconnects from the database.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Authorize(ctx context.Context, userID string, t topic.Topic) error {
	if handled, err := authorizeUserTopic(userID, t); handled {
		return err
	}

	var (
		collection *mongo.Collection
		filter     bson.D
	)
	switch t.Kind() {
	case topic.KindTask:
		collection, filter = m.tasks, taskFilter(t.ID(), userID)
	case topic.KindConversation:
		collection, filter = m.conversations, conversationFilter(t.ID(), userID)
	default:
		return fmt.Errorf("%w: %s", ErrNotMember, t)
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	count, err := collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	m.logger.Debug("membership lookup", "topic", t, "user_id", userID, "duration", time.Since(start))
	if err != nil {
		return fmt.Errorf("membership lookup for %s: %w", t, err)
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrNotMember, t)
	}
	return nil
}

// documentID matches TaskFlow ids, which are ObjectIDs in the API's
// own documents but may be plain strings in imported data.
func documentID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.D{{Key: "$in", Value: bson.A{oid, id}}}
	}
	return id
}

// userRef matches a user id stored either as an ObjectID or a string,
// inside a scalar field or an array.
func userRef(userID string) any {
	if oid, err := primitive.ObjectIDFromHex(userID); err == nil {
		return bson.D{{Key: "$in", Value: bson.A{oid, userID}}}
	}
	return userID
}

func taskFilter(taskID, userID string) bson.D {
	user := userRef(userID)
	return bson.D{
		{Key: "_id", Value: documentID(taskID)},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "assignedTo", Value: user}},
			bson.D{{Key: "createdBy", Value: user}},
			bson.D{{Key: "members", Value: user}},
		}},
	}
}

func conversationFilter(conversationID, userID string) bson.D {
	return bson.D{
		{Key: "_id", Value: documentID(conversationID)},
		{Key: "participants", Value: userRef(userID)},
	}
}
