package core

import (
	"context"
	"time"

	"github.com/recruitsync/harvest-connector/pkg/config"
	"github.com/recruitsync/harvest-connector/pkg/models"
)

// ConnectorType represents the type of connector
type ConnectorType string

const (
	ConnectorTypeSource ConnectorType = "source"
)

// State represents connector state
type State map[string]interface{}

// Position represents a position in the data stream
type Position interface {
	// String returns a string representation of the position
	String() string
	// Compare returns -1 if this < other, 0 if equal, 1 if this > other
	Compare(other Position) int
}

// Schema represents the data schema for one entity
type Schema struct {
	Name        string
	Description string
	Fields      []Field
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Field represents a field in the schema
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Nullable    bool
	Primary     bool
}

// FieldType represents the data type of a field
type FieldType string

const (
	FieldTypeString    FieldType = "string"
	FieldTypeInt       FieldType = "int"
	FieldTypeFloat     FieldType = "float"
	FieldTypeBool      FieldType = "bool"
	FieldTypeTimestamp FieldType = "timestamp"
	FieldTypeDate      FieldType = "date"
	FieldTypeJSON      FieldType = "json"
)

// StreamDescriptor describes one extractable stream a source declares.
// The declared set is fixed; at runtime the source filters it down to the
// streams the current credential can read.
type StreamDescriptor struct {
	// Name is the entity name, possibly compound ("applications.interviews")
	Name string `json:"name"`
	// Schema describes the emitted records
	Schema *Schema `json:"schema,omitempty"`
	// PrimaryKey names the fields that identify a record
	PrimaryKey []string `json:"primary_key,omitempty"`
}

// RecordStream represents a stream of records
type RecordStream struct {
	Records <-chan *models.Record
	Errors  <-chan error
}

// BatchStream represents a stream of record batches
type BatchStream struct {
	Batches <-chan []*models.Record
	Errors  <-chan error
}

// Source is the interface that all source connectors must implement
type Source interface {
	// Core functionality
	Initialize(ctx context.Context, config *config.BaseConfig) error
	Discover(ctx context.Context) ([]StreamDescriptor, error)
	Read(ctx context.Context) (*RecordStream, error)
	ReadBatch(ctx context.Context, batchSize int) (*BatchStream, error)
	Close(ctx context.Context) error

	// State management
	GetPosition() Position
	SetPosition(position Position) error
	GetState() State
	SetState(state State) error

	// Capabilities
	SupportsIncremental() bool
	SupportsBatch() bool

	// Health and metrics
	Health(ctx context.Context) error
	Metrics() map[string]interface{}
}

// Connector is the base interface for all connectors
type Connector interface {
	// Metadata
	Name() string
	Type() ConnectorType
	Version() string

	// Lifecycle
	Initialize(ctx context.Context, config *config.BaseConfig) error
	Close(ctx context.Context) error

	// Health and monitoring
	Health(ctx context.Context) error
	Metrics() map[string]interface{}
}

// HealthStatus represents the health status of a connector
type HealthStatus struct {
	Status    string                 `json:"status"` // "healthy", "unhealthy", "degraded"
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details"`
	Error     error                  `json:"error,omitempty"`
}
