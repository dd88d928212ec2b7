package storage

import (
	"context"

	"robby/internal/model"
)

// Store persists the reporting history of finished runs.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns every stored run, oldest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
}
