package sync

import (
	"context"
	"fmt"
	"time"

	"demantive/internal/common/errs"
	"demantive/internal/common/models"
	"demantive/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RawObjectRepository interface {
	Upsert(ctx context.Context, obj *RawObject) error
	ForEach(ctx context.Context, tenantID string, provider models.Provider, objectType models.ObjectType, fn func(*RawObject) error) error
	EnsureIndexes(ctx context.Context) error
}

type SyncRunRepository interface {
	Create(ctx context.Context, run *SyncRun) error
	Close(ctx context.Context, run *SyncRun) error
	AbandonStale(ctx context.Context, tenantID string, provider models.Provider, startedBefore time.Time) (int64, error)
	List(ctx context.Context, tenantID string, limit int64) ([]SyncRun, error)
	EnsureIndexes(ctx context.Context) error
}

type RawObjectRepositoryImpl struct {
	collection *mongo.Collection
}

func NewRawObjectRepository(db *database.MongodbDB) RawObjectRepository {
	return &RawObjectRepositoryImpl{
		collection: db.DB.Collection("raw_objects"),
	}
}

// rawObjectUpsert builds the filter and update for a staged object. first_seen_at is only
// written on insert so re-ingestion keeps it.
func rawObjectUpsert(obj *RawObject, now time.Time) (bson.M, bson.M) {
	filter := bson.M{
		"tenant_id":   obj.TenantID,
		"provider":    obj.Provider,
		"object_type": obj.ObjectType,
		"external_id": obj.ExternalID,
	}
	update := bson.M{
		"$set": bson.M{
			"payload":         obj.Payload,
			"system_modstamp": obj.SystemModstamp,
			"last_seen_at":    now,
		},
		"$setOnInsert": bson.M{
			"first_seen_at": now,
		},
	}
	return filter, update
}

func (r *RawObjectRepositoryImpl) Upsert(ctx context.Context, obj *RawObject) error {
	now := time.Now().UTC()
	filter, update := rawObjectUpsert(obj, now)

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert raw %s %s: %w", obj.ObjectType, obj.ExternalID, err)
	}
	obj.LastSeenAt = now
	return nil
}

// ForEach streams every staged object of one type to fn, stopping at the first error.
func (r *RawObjectRepositoryImpl) ForEach(ctx context.Context, tenantID string, provider models.Provider, objectType models.ObjectType, fn func(*RawObject) error) error {
	filter := bson.M{
		"tenant_id":   tenantID,
		"provider":    provider,
		"object_type": objectType,
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var obj RawObject
		if err := cursor.Decode(&obj); err != nil {
			return err
		}
		if err := fn(&obj); err != nil {
			return err
		}
	}
	return cursor.Err()
}

func (r *RawObjectRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "tenant_id", Value: 1},
			{Key: "provider", Value: 1},
			{Key: "object_type", Value: 1},
			{Key: "external_id", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("raw_object_key"),
	})
	return err
}

type SyncRunRepositoryImpl struct {
	collection *mongo.Collection
}

func NewSyncRunRepository(db *database.MongodbDB) SyncRunRepository {
	return &SyncRunRepositoryImpl{
		collection: db.DB.Collection("sync_runs"),
	}
}

// Create inserts a running run. The partial unique index turns a second running run
// for the same connection into ErrSyncInProgress.
func (r *SyncRunRepositoryImpl) Create(ctx context.Context, run *SyncRun) error {
	if run.ID.IsZero() {
		run.ID = primitive.NewObjectID()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, run)
	if mongo.IsDuplicateKeyError(err) {
		return errs.ErrSyncInProgress
	}
	return err
}

// Close writes the terminal state. Only a running run can be closed.
func (r *SyncRunRepositoryImpl) Close(ctx context.Context, run *SyncRun) error {
	update := bson.M{
		"status":      run.Status,
		"counts":      run.Counts,
		"finished_at": run.FinishedAt,
	}
	if run.Error != "" {
		update["error"] = run.Error
	}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": run.ID, "status": RunRunning},
		bson.M{"$set": update},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("sync run %s is not running", run.ID.Hex())
	}
	return nil
}

// AbandonStale fails running runs that started before the cutoff, freeing the connection
// after a process died mid-sync.
func (r *SyncRunRepositoryImpl) AbandonStale(ctx context.Context, tenantID string, provider models.Provider, startedBefore time.Time) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{
			"tenant_id":  tenantID,
			"provider":   provider,
			"status":     RunRunning,
			"started_at": bson.M{"$lt": startedBefore},
		},
		bson.M{"$set": bson.M{
			"status":      RunFailed,
			"error":       abandonedRunError,
			"finished_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *SyncRunRepositoryImpl) List(ctx context.Context, tenantID string, limit int64) ([]SyncRun, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"tenant_id": tenantID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	runs := []SyncRun{}
	if err = cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *SyncRunRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "provider", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": RunRunning}).
				SetName("one_running_per_connection"),
		},
		{
			Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "started_at", Value: -1}},
			Options: options.Index().SetName("runs_by_tenant"),
		},
	})
	return err
}
