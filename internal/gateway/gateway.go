// Package gateway describes the hosted backend the client core consumes:
// session, table reads and writes, the SOS procedure, realtime change
// events and blob storage.
package gateway

import (
	"context"
	"time"

	"resq/internal/models"
)

const (
	TableReports = "tbl_reports"
	TableMedia   = "tbl_media"
	TableOffices = "tbl_police_offices"
	TableUsers   = "tbl_users"

	ProcedureCreateEmergencySOS = "create_emergency_sos"
)

// Row is an untyped record as returned by the backend.
type Row map[string]interface{}

type Operator string

const (
	OpEq    Operator = "eq"
	OpNeq   Operator = "neq"
	OpIn    Operator = "in"
	OpILike Operator = "ilike"
	OpIs    Operator = "is"
)

type Filter struct {
	Column string
	Op     Operator
	Value  interface{}
}

func Eq(column string, value interface{}) Filter {
	return Filter{Column: column, Op: OpEq, Value: value}
}

func In(column string, values ...string) Filter {
	return Filter{Column: column, Op: OpIn, Value: values}
}

type Order struct {
	Column     string
	Descending bool
}

type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Order   []Order
	Limit   int
}

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventAny    EventType = "*"
)

// ChangeEvent only signals that something changed; its payload is not used.
type ChangeEvent struct {
	Table    string
	Type     EventType
	Received time.Time
}

type Gateway interface {
	// Session returns nil, nil when nobody is signed in.
	Session(ctx context.Context) (*models.Session, error)

	Query(ctx context.Context, q *Query) ([]Row, error)
	Insert(ctx context.Context, table string, rows ...Row) error
	Update(ctx context.Context, table string, filters []Filter, patch Row) error
	Delete(ctx context.Context, table string, filters []Filter) error

	// CallProcedure decodes the procedure result into out.
	CallProcedure(ctx context.Context, name string, params interface{}, out interface{}) error

	Subscribe(ctx context.Context, table string, onEvent func(ChangeEvent)) (unsubscribe func(), err error)

	RemoveObject(ctx context.Context, bucket, path string) error
}
