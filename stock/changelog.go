package stock

import "context"

// DefaultPageSize is the change-log page size when none is requested.
const DefaultPageSize = 10

// ChangeLogPage is one page of change-log entries, newest first.
type ChangeLogPage struct {
	Entries []ChangeLogEntry
	Total   int
	Limit   int
	Offset  int
}

// HasMore reports whether entries exist past this page.
func (p ChangeLogPage) HasMore() bool { return p.Offset+len(p.Entries) < p.Total }

// History pages through the change log, newest first.
func (r *Reconciler) History(ctx context.Context, limit, offset int) (ChangeLogPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	entries, total, err := r.store.ListChangeLog(ctx, limit, offset)
	if err != nil {
		return ChangeLogPage{}, WrapStorage("list change log", err)
	}
	if entries == nil {
		entries = []ChangeLogEntry{}
	}
	return ChangeLogPage{Entries: entries, Total: total, Limit: limit, Offset: offset}, nil
}

// LogEntry returns one change-log entry or a NotFoundError.
func (r *Reconciler) LogEntry(ctx context.Context, id string) (ChangeLogEntry, error) {
	entry, err := r.store.GetChangeLog(ctx, id)
	if err != nil {
		return ChangeLogEntry{}, WrapStorage("get change log", err)
	}
	if entry == nil {
		return ChangeLogEntry{}, &NotFoundError{Kind: "change_log", Key: id}
	}
	return *entry, nil
}
