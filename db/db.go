package db

import (
	"context"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	UserCollection       *mongo.Collection
	BranchesCollection   *mongo.Collection
	FoodsCollection      *mongo.Collection
	OrdersCollection     *mongo.Collection
	OrderItemsCollection *mongo.Collection
	CountersCollection   *mongo.Collection
	Client               *mongo.Client
)

// Connect initializes the MongoDB connection and the collection handles.
// Called once from main before the server starts accepting requests.
func Connect() error {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return err
	}
	Client = client

	dbName := os.Getenv("MONGODB_DB")
	if dbName == "" {
		dbName = "sufradb"
	}

	UserCollection = Client.Database(dbName).Collection("profiles")
	BranchesCollection = Client.Database(dbName).Collection("branches")
	FoodsCollection = Client.Database(dbName).Collection("food_items")
	OrdersCollection = Client.Database(dbName).Collection("orders")
	OrderItemsCollection = Client.Database(dbName).Collection("order_items")
	CountersCollection = Client.Database(dbName).Collection("counters")

	log.Println("Connected to MongoDB:", dbName)
	return nil
}

// NextSequence returns the next value of a named auto-increment counter.
// Branch and food ids are small integers, matching what menus and carts carry.
func NextSequence(ctx context.Context, name string) (int, error) {
	var doc struct {
		Seq int `bson:"seq"`
	}
	err := CountersCollection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}
