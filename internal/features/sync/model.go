package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"demantive/internal/common/models"
	"demantive/internal/connectors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

type Mode string

const (
	ModeFull  Mode = "full"
	ModeQuick Mode = "quick"
)

type Counts struct {
	Companies int `json:"companies" bson:"companies"`
	Contacts  int `json:"contacts" bson:"contacts"`
	Deals     int `json:"deals" bson:"deals"`
}

func (c *Counts) Add(objectType models.ObjectType, n int) {
	switch objectType {
	case models.ObjectCompany:
		c.Companies += n
	case models.ObjectContact:
		c.Contacts += n
	case models.ObjectDeal:
		c.Deals += n
	}
}

// SyncRun records one ingestion attempt. It is created running and closed exactly once.
type SyncRun struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID   string             `json:"tenant_id" bson:"tenant_id"`
	Provider   models.Provider    `json:"provider" bson:"provider"`
	Mode       Mode               `json:"mode" bson:"mode"`
	Status     RunStatus          `json:"status" bson:"status"`
	Counts     Counts             `json:"counts" bson:"counts"`
	Error      string             `json:"error,omitempty" bson:"error,omitempty"`
	StartedAt  time.Time          `json:"started_at" bson:"started_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty" bson:"finished_at,omitempty"`
}

// RawObject is the staged provider payload, unique per (tenant, provider, object type, external id).
type RawObject struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TenantID       string             `json:"tenant_id" bson:"tenant_id"`
	Provider       models.Provider    `json:"provider" bson:"provider"`
	ObjectType     models.ObjectType  `json:"object_type" bson:"object_type"`
	ExternalID     string             `json:"external_id" bson:"external_id"`
	Payload        bson.Raw           `json:"-" bson:"payload"`
	SystemModstamp *time.Time         `json:"system_modstamp,omitempty" bson:"system_modstamp,omitempty"`
	FirstSeenAt    time.Time          `json:"first_seen_at" bson:"first_seen_at"`
	LastSeenAt     time.Time          `json:"last_seen_at" bson:"last_seen_at"`
}

// NewRawObject stages obj, converting its JSON payload to a BSON document.
func NewRawObject(tenantID string, provider models.Provider, objectType models.ObjectType, obj *connectors.Object) (*RawObject, error) {
	payload, err := payloadFromJSON(obj.Raw)
	if err != nil {
		return nil, fmt.Errorf("stage %s %s: %w", objectType, obj.ID, err)
	}
	return &RawObject{
		TenantID:       tenantID,
		Provider:       provider,
		ObjectType:     objectType,
		ExternalID:     obj.ID,
		Payload:        payload,
		SystemModstamp: obj.ModifiedAt(),
	}, nil
}

// Object decodes the staged payload back into a provider object.
func (r *RawObject) Object() (*connectors.Object, error) {
	data, err := bson.MarshalExtJSON(r.Payload, false, false)
	if err != nil {
		return nil, fmt.Errorf("decode staged %s %s: %w", r.ObjectType, r.ExternalID, err)
	}
	var obj connectors.Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode staged %s %s: %w", r.ObjectType, r.ExternalID, err)
	}
	if obj.ID == "" {
		obj.ID = r.ExternalID
	}
	obj.Raw = data
	return &obj, nil
}

func payloadFromJSON(raw json.RawMessage) (bson.Raw, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, err
	}
	return bson.Marshal(doc)
}
