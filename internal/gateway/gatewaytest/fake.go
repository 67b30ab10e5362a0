// Package gatewaytest provides an in-memory gateway.Gateway for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"resq/internal/gateway"
	"resq/internal/models"
)

// Call records one gateway invocation.
type Call struct {
	Op     string
	Table  string
	Params interface{}
}

// Fake keeps tables as row slices. Filters support eq, neq, in and is.null.
type Fake struct {
	mu      sync.Mutex
	session *models.Session
	tables  map[string][]gateway.Row
	calls   []Call
	errs    map[string]error
	subs    map[int]func(gateway.ChangeEvent)
	subSeq  int

	// ProcedureFn answers CallProcedure; out must be a *gateway.Row.
	ProcedureFn func(ctx context.Context, name string, params interface{}) (gateway.Row, error)
	// QueryHook runs before each query; returning an error fails it.
	QueryHook func(ctx context.Context, q *gateway.Query) error
}

func New() *Fake {
	return &Fake{
		tables: make(map[string][]gateway.Row),
		errs:   make(map[string]error),
		subs:   make(map[int]func(gateway.ChangeEvent)),
	}
}

var _ gateway.Gateway = (*Fake)(nil)

func (f *Fake) SetSession(s *models.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.session = s
}

// FailOn makes every op of the given kind ("query", "insert", "update",
// "delete", "procedure", "remove", "session", "subscribe") return err.
// A nil err clears the failure.
func (f *Fake) FailOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, op)
		return
	}
	f.errs[op] = err
}

// FailOnTable restricts the failure to one table.
func (f *Fake) FailOnTable(op, table string, err error) {
	f.FailOn(op+":"+table, err)
}

func (f *Fake) Seed(table string, rows ...gateway.Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range rows {
		f.tables[table] = append(f.tables[table], copyRow(row))
	}
}

func (f *Fake) Rows(table string) []gateway.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]gateway.Row, len(f.tables[table]))
	for i, row := range f.tables[table] {
		out[i] = copyRow(row)
	}
	return out
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Writes returns every mutating call: inserts, updates, deletes, procedure
// calls and object removals.
func (f *Fake) Writes() []Call {
	var out []Call
	for _, c := range f.Calls() {
		switch c.Op {
		case "insert", "update", "delete", "procedure", "remove":
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) CallCount(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *Fake) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Emit delivers a change event to every subscriber of table.
func (f *Fake) Emit(table string, eventType gateway.EventType) {
	f.mu.Lock()
	handlers := make([]func(gateway.ChangeEvent), 0, len(f.subs))
	for _, h := range f.subs {
		handlers = append(handlers, h)
	}
	f.mu.Unlock()

	event := gateway.ChangeEvent{Table: table, Type: eventType, Received: time.Now()}
	for _, h := range handlers {
		h(event)
	}
}

func (f *Fake) Session(ctx context.Context) (*models.Session, error) {
	if err := f.record(ctx, "session", "", nil); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil, nil
	}
	s := *f.session
	return &s, nil
}

func (f *Fake) Query(ctx context.Context, q *gateway.Query) ([]gateway.Row, error) {
	if f.QueryHook != nil {
		if err := f.QueryHook(ctx, q); err != nil {
			return nil, err
		}
	}
	if err := f.record(ctx, "query", q.Table, q); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var out []gateway.Row
	for _, row := range f.tables[q.Table] {
		if matches(row, q.Filters) {
			out = append(out, copyRow(row))
		}
	}
	for i := len(q.Order) - 1; i >= 0; i-- {
		o := q.Order[i]
		sort.SliceStable(out, func(a, b int) bool {
			c := compare(out[a][o.Column], out[b][o.Column])
			if o.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *Fake) Insert(ctx context.Context, table string, rows ...gateway.Row) error {
	if err := f.record(ctx, "insert", table, rows); err != nil {
		return err
	}
	f.Seed(table, rows...)
	return nil
}

func (f *Fake) Update(ctx context.Context, table string, filters []gateway.Filter, patch gateway.Row) error {
	if err := f.record(ctx, "update", table, patch); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.tables[table] {
		if matches(row, filters) {
			for k, v := range patch {
				row[k] = v
			}
		}
	}
	return nil
}

func (f *Fake) Delete(ctx context.Context, table string, filters []gateway.Filter) error {
	if err := f.record(ctx, "delete", table, filters); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.tables[table][:0]
	for _, row := range f.tables[table] {
		if !matches(row, filters) {
			kept = append(kept, row)
		}
	}
	f.tables[table] = kept
	return nil
}

func (f *Fake) CallProcedure(ctx context.Context, name string, params interface{}, out interface{}) error {
	if err := f.record(ctx, "procedure", name, params); err != nil {
		return err
	}
	if f.ProcedureFn == nil {
		return fmt.Errorf("procedure %s: %w", name, gateway.ErrNotFound)
	}
	row, err := f.ProcedureFn(ctx, name, params)
	if err != nil {
		return err
	}
	dest, ok := out.(*gateway.Row)
	if !ok {
		return fmt.Errorf("fake gateway: unsupported procedure output %T", out)
	}
	*dest = copyRow(row)
	return nil
}

func (f *Fake) Subscribe(ctx context.Context, table string, onEvent func(gateway.ChangeEvent)) (func(), error) {
	if err := f.record(ctx, "subscribe", table, nil); err != nil {
		return nil, err
	}
	f.mu.Lock()
	id := f.subSeq
	f.subSeq++
	f.subs[id] = onEvent
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}, nil
}

func (f *Fake) RemoveObject(ctx context.Context, bucket, path string) error {
	return f.record(ctx, "remove", bucket, path)
}

func (f *Fake) record(ctx context.Context, op, table string, params interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, Table: table, Params: params})
	if err, ok := f.errs[op+":"+table]; ok {
		return err
	}
	if err, ok := f.errs[op]; ok {
		return err
	}
	return nil
}

func matches(row gateway.Row, filters []gateway.Filter) bool {
	for _, flt := range filters {
		value := models.RowString(row, flt.Column)
		switch flt.Op {
		case gateway.OpEq:
			if value != fmt.Sprint(flt.Value) {
				return false
			}
		case gateway.OpNeq:
			if value == fmt.Sprint(flt.Value) {
				return false
			}
		case gateway.OpIn:
			values, _ := flt.Value.([]string)
			found := false
			for _, v := range values {
				if v == value {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case gateway.OpIs:
			if row[flt.Column] != nil {
				return false
			}
		case gateway.OpILike:
			pattern := strings.ToLower(strings.Trim(fmt.Sprint(flt.Value), "%"))
			if !strings.Contains(strings.ToLower(value), pattern) {
				return false
			}
		}
	}
	return true
}

func compare(a, b interface{}) int {
	ta, tb := models.RowTime(gateway.Row{"v": a}, "v"), models.RowTime(gateway.Row{"v": b}, "v")
	if !ta.IsZero() || !tb.IsZero() {
		return ta.Compare(tb)
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func copyRow(row gateway.Row) gateway.Row {
	out := make(gateway.Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
