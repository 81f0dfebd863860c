package pipeline

import (
	"context"
	"log/slog"

	"github.com/ashishact/ramble/internal/store"
)

// Checkpointer writes advisory mid-task markers for one (unit, task) pair.
// Checkpoints are not required for correctness; handlers are idempotent via
// existence checks. They only reduce repeated external-call cost on retry.
// Failures are logged and swallowed, never surfaced to the handler.
type Checkpointer struct {
	store  store.Store
	unitID string
	task   string
	log    *slog.Logger
}

// NewCheckpointer creates a checkpoint sink scoped to one task attempt.
func NewCheckpointer(st store.Store, unitID, task string, log *slog.Logger) *Checkpointer {
	if log == nil {
		log = slog.Default()
	}
	return &Checkpointer{store: st, unitID: unitID, task: task, log: log}
}

// Checkpoint records a named step with optional data.
func (c *Checkpointer) Checkpoint(ctx context.Context, step string, data map[string]any) {
	err := c.store.SaveCheckpoint(ctx, &store.CheckpointRecord{
		UnitID: c.unitID,
		Task:   c.task,
		Step:   step,
		Data:   data,
	})
	if err != nil {
		c.log.Warn("checkpoint write failed", "unit", c.unitID, "task", c.task, "step", step, "err", err)
	}
}

// Last returns the most recent checkpoint for this (unit, task), or nil.
func (c *Checkpointer) Last(ctx context.Context) *store.CheckpointRecord {
	rec, err := c.store.GetCheckpoint(ctx, c.unitID, c.task)
	if err != nil {
		c.log.Warn("checkpoint read failed", "unit", c.unitID, "task", c.task, "err", err)
		return nil
	}
	return rec
}

// Clear removes the checkpoint after the task completes.
func (c *Checkpointer) Clear(ctx context.Context) {
	if err := c.store.DeleteCheckpoint(ctx, c.unitID, c.task); err != nil {
		c.log.Warn("checkpoint delete failed", "unit", c.unitID, "task", c.task, "err", err)
	}
}
