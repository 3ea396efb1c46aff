package files

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoFile struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	OriginalName string             `bson:"originalName"`
	StorageKey   string             `bson:"storageKey"`
	ContentType  string             `bson:"contentType"`
	Size         int64              `bson:"size"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

func (m mongoFile) toRecord() FileRecord {
	return FileRecord{
		ID:           m.ID.Hex(),
		OriginalName: m.OriginalName,
		StorageKey:   m.StorageKey,
		ContentType:  m.ContentType,
		SizeBytes:    m.Size,
		CreatedAt:    m.CreatedAt.UTC(),
	}
}

// MongoRepo implements Repo on a MongoDB collection.
type MongoRepo struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoRepo returns a repo backed by coll.
func NewMongoRepo(coll *mongo.Collection) *MongoRepo {
	return &MongoRepo{
		coll: coll,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// EnsureIndexes creates the listing and storage-key indexes.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "storageKey", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

// Insert stores rec with a new ObjectID. CreatedAt is truncated to the
// millisecond precision BSON dates keep.
func (r *MongoRepo) Insert(ctx context.Context, rec FileRecord) (FileRecord, error) {
	if err := validateRecord(rec); err != nil {
		return FileRecord{}, err
	}

	doc := mongoFile{
		ID:           primitive.NewObjectID(),
		OriginalName: rec.OriginalName,
		StorageKey:   rec.StorageKey,
		ContentType:  rec.ContentType,
		Size:         rec.SizeBytes,
		CreatedAt:    r.now().Truncate(time.Millisecond),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return FileRecord{}, err
	}
	return doc.toRecord(), nil
}

// ListNewestFirst returns every record, newest first.
func (r *MongoRepo) ListNewestFirst(ctx context.Context) ([]FileRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []FileRecord{}
	for cur.Next(ctx) {
		var doc mongoFile
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toRecord())
	}
	return out, cur.Err()
}

// GetByID fetches a record by its hex ObjectID.
func (r *MongoRepo) GetByID(ctx context.Context, id string) (FileRecord, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return FileRecord{}, ErrNotFound
	}

	var doc mongoFile
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return FileRecord{}, ErrNotFound
		}
		return FileRecord{}, err
	}
	return doc.toRecord(), nil
}

// DeleteByID removes a record by its hex ObjectID.
func (r *MongoRepo) DeleteByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks that the primary is reachable.
func (r *MongoRepo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, readpref.Primary())
}

var (
	_ Repo   = (*MongoRepo)(nil)
	_ Pinger = (*MongoRepo)(nil)
)
