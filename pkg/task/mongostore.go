package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the MongoDB collection holding task documents.
const Collection = "tasks"

// taskDocument is the stored shape of a task.
type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	DueDate     time.Time          `bson:"dueDate"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d taskDocument) toTask() Task {
	return Task{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		DueDate:     normalizeTime(d.DueDate),
		Status:      Status(d.Status),
		CreatedAt:   normalizeTime(d.CreatedAt),
		UpdatedAt:   normalizeTime(d.UpdatedAt),
	}
}

// MongoStore is a MongoDB-backed task store.
type MongoStore struct {
	coll *mongo.Collection
	opts storeOptions
}

// NewMongoStore creates a MongoStore over the tasks collection of db.
func NewMongoStore(db *mongo.Database, opts ...Option) *MongoStore {
	return &MongoStore{coll: db.Collection(Collection), opts: newOptions(opts)}
}

// EnsureSchema creates the status index if it doesn't exist.
func (s *MongoStore) EnsureSchema(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "status", Value: 1}},
		Options: options.Index().SetName("idx_tasks_status"),
	})
	if err != nil {
		return fmt.Errorf("create tasks status index: %w", err)
	}
	return nil
}

// Create inserts a new task document.
func (s *MongoStore) Create(ctx context.Context, in CreateTask) (*Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.opts.timestamp()
	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		Title:       in.Title,
		Description: in.Description,
		DueDate:     normalizeTime(in.DueDate),
		Status:      string(in.Status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if doc.Status == "" {
		doc.Status = string(DefaultStatus)
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	t := doc.toTask()
	return &t, nil
}

// Get retrieves a single task by ID.
func (s *MongoStore) Get(ctx context.Context, id string) (*Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, ErrNotFound)
	}
	var doc taskDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, noDocuments(err))
	}
	t := doc.toTask()
	return &t, nil
}

// List returns tasks filtered by status (empty = all) in insertion order.
func (s *MongoStore) List(ctx context.Context, f Filter) ([]Task, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer cur.Close(ctx)

	tasks := []Task{}
	for cur.Next(ctx) {
		var doc taskDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, doc.toTask())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration: %w", err)
	}
	return tasks, nil
}

// Update applies the non-nil patch fields with a $set stage and returns the result.
func (s *MongoStore) Update(ctx context.Context, id string, patch UpdateTask) (*Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, ErrNotFound)
	}

	// Pipeline form so updatedAt can be compared with the stored value.
	// Patch values go through $literal so a leading "$" is not a field path.
	set := bson.D{{Key: "updatedAt", Value: bson.M{"$max": bson.A{
		s.opts.timestamp(),
		bson.M{"$add": bson.A{"$updatedAt", 1}},
	}}}}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: bson.M{"$literal": *patch.Title}})
	}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: bson.M{"$literal": *patch.Description}})
	}
	if patch.DueDate != nil {
		set = append(set, bson.E{Key: "dueDate", Value: bson.M{"$literal": normalizeTime(*patch.DueDate)}})
	}
	if patch.Status != nil {
		set = append(set, bson.E{Key: "status", Value: bson.M{"$literal": string(*patch.Status)}})
	}

	var doc taskDocument
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		mongo.Pipeline{{{Key: "$set", Value: set}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, noDocuments(err))
	}
	t := doc.toTask()
	return &t, nil
}

// Delete removes a task document by ID.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return nil
}

func noDocuments(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
