package config

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const importReportTTL = 90 * 24 * time.Hour

func EnsureMongoIndexes(dbName string) error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}
	db := MongoClient.Database(dbName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// snapshots are append-only and read newest first
	snapshots := db.Collection("evaluation_snapshots")
	_, err := snapshots.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "evaluation_id", Value: 1}, {Key: "taken_at", Value: -1}},
			Options: options.Index().SetName("by_evaluation_taken"),
		},
		{
			Keys:    bson.D{{Key: "worker_id", Value: 1}, {Key: "taken_at", Value: -1}},
			Options: options.Index().SetName("by_worker_taken"),
		},
	})
	if err != nil {
		return err
	}

	reports := db.Collection("import_reports")
	_, err = reports.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().
				SetName("ttl_created_at").
				SetExpireAfterSeconds(int32(importReportTTL.Seconds())),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("by_actor_created"),
		},
	})
	return err
}
