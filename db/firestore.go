package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreDB stores every key as one document of a single collection
type FirestoreDB struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreDB initializes a new Firestore client
func NewFirestoreDB(ctx context.Context, projectID, credentialsPath, collection string) (*FirestoreDB, error) {
	opt := option.WithCredentialsFile(credentialsPath)

	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	log.Printf("✅ Connected to Firestore project: %s", projectID)

	return NewFirestoreDBFromClient(client, collection), nil
}

// NewFirestoreDBFromClient wraps an existing client, e.g. one pointed at the emulator.
func NewFirestoreDBFromClient(client *firestore.Client, collection string) *FirestoreDB {
	if collection == "" {
		collection = "gatedesk"
	}
	return &FirestoreDB{client: client, collection: collection}
}

// Close closes the Firestore client
func (db *FirestoreDB) Close() error {
	return db.client.Close()
}

func (db *FirestoreDB) doc(key string) *firestore.DocumentRef {
	return db.client.Collection(db.collection).Doc(key)
}

// Get retrieves the value stored under key
func (db *FirestoreDB) Get(ctx context.Context, key string) ([]byte, error) {
	snap, err := db.doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}

	value, ok := snap.Data()["value"].([]byte)
	if !ok {
		return nil, fmt.Errorf("document %s has no value field", key)
	}
	return value, nil
}

// Set creates or replaces the value stored under key
func (db *FirestoreDB) Set(ctx context.Context, key string, value []byte) error {
	_, err := db.doc(key).Set(ctx, map[string]interface{}{
		"value":      value,
		"updated_at": time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes key; deleting a missing key is not an error
func (db *FirestoreDB) Delete(ctx context.Context, key string) error {
	_, err := db.doc(key).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
