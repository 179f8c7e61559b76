package audit

import "context"

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

// Store persists audit records. Records are append-only: implementations expose
// no update or delete. Writes must join the transaction carried by ctx when
// there is one.
type Store interface {
	Append(ctx context.Context, record Record) error
	// ListByAuditable returns the records of one entity, oldest first, in the
	// order they were appended.
	ListByAuditable(ctx context.Context, ref Ref) ([]Record, error)
	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]Record, error)
}
