package config

import (
	"context"
	"crypto/tls"
	"errors"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoClient *mongo.Client

// InitMongo connects to MongoDB and verifies the connection with a ping.
func InitMongo(uri string) error {
	if uri == "" {
		return errors.New("MONGO_URI environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(uri).
		SetServerSelectionTimeout(20 * time.Second).
		SetConnectTimeout(15 * time.Second).
		SetMaxPoolSize(10).
		SetMinPoolSize(1)

	// Atlas clusters reject some TLS 1.3 handshakes from Go 1.24
	if os.Getenv("MONGO_FORCE_TLS_CONFIG") == "true" {
		clientOpts = clientOpts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: os.Getenv("MONGO_INSECURE_TLS") == "true",
			MinVersion:         tls.VersionTLS12,
			MaxVersion:         tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return err
	}

	MongoClient = client
	return nil
}
