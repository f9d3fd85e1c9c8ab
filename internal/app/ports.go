package app

import "context"

// Repository persists named board snapshots.
type Repository interface {
	SaveSnapshot(context.Context, Snapshot) error
	GetSnapshot(context.Context, string) (Snapshot, error)
	ListSnapshots(context.Context) ([]SnapshotInfo, error)
	DeleteSnapshot(context.Context, string) error
}
