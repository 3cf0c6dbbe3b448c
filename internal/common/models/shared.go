package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

const (
	TenantIDKey ContextKey = "tenant_id"
)

// Provider identifies an external CRM.
type Provider string

const (
	ProviderHubSpot    Provider = "hubspot"
	ProviderSalesforce Provider = "salesforce"
)

func (p Provider) Valid() bool {
	return p == ProviderHubSpot || p == ProviderSalesforce
}

// ObjectType is a CRM object family pulled during ingestion.
type ObjectType string

const (
	ObjectCompany ObjectType = "company"
	ObjectContact ObjectType = "contact"
	ObjectDeal    ObjectType = "deal"
)

// IngestionOrder lists object types in the order they are extracted and normalized.
var IngestionOrder = []ObjectType{ObjectCompany, ObjectContact, ObjectDeal}

type AuditAction string

const (
	AuditActionCreate     AuditAction = "CREATE"
	AuditActionUpdate     AuditAction = "UPDATE"
	AuditActionDelete     AuditAction = "DELETE"
	AuditActionConnect    AuditAction = "CONNECT"
	AuditActionDisconnect AuditAction = "DISCONNECT"
	AuditActionSync       AuditAction = "SYNC"
	AuditActionMapping    AuditAction = "MAPPING"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TenantID  string             `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`
	RecordID  string             `bson:"record_id" json:"record_id"`
	ActorID   string             `bson:"actor_id" json:"actor_id"`
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

type Log struct {
	Message      string    `bson:"message" json:"message"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	IpAddress    string    `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	TenantID     string    `bson:"tenant_id,omitempty" json:"tenant_id,omitempty"`
	AppID        string    `bson:"app_id" json:"app_id"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
