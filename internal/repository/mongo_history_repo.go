package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"api-chatbot/internal/models"
)

const chatsCollection = "chats"

// MongoHistoryRepo keeps one document per user:
// {userId, messages: [{text, isUser, timestamp}], createdAt}.
type MongoHistoryRepo struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

func NewMongoHistoryRepo(client *mongo.Client, database string) *MongoHistoryRepo {
	return &MongoHistoryRepo{
		client: client,
		coll:   client.Database(database).Collection(chatsCollection),
		now:    time.Now,
	}
}

// EnsureIndexes creates the unique userId index so concurrent upserts for a
// new user cannot produce two documents.
func (r *MongoHistoryRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_user_id"),
	})
	return err
}

func (r *MongoHistoryRepo) Append(ctx context.Context, userID, userText, botText string) error {
	now := r.now().UTC()
	update := bson.M{
		"$push": bson.M{
			"messages": bson.M{"$each": turnMessages(userText, botText, now)},
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	_, err := r.coll.UpdateOne(ctx, bson.M{"userId": userID}, update, options.Update().SetUpsert(true))
	return storeErr("append", userID, err)
}

func (r *MongoHistoryRepo) Get(ctx context.Context, userID string) ([]models.Message, error) {
	var session models.ChatSession
	err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []models.Message{}, nil
	}
	if err != nil {
		return nil, storeErr("get", userID, err)
	}
	if session.Messages == nil {
		return []models.Message{}, nil
	}
	return session.Messages, nil
}

func (r *MongoHistoryRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"userId": userID}, bson.M{"$set": bson.M{"messages": bson.A{}}})
	return storeErr("clear", userID, err)
}

func (r *MongoHistoryRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

func (r *MongoHistoryRepo) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
