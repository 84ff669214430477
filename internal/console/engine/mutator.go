package engine

import (
	"context"

	"veridesk/internal/console/models"
	"veridesk/internal/console/store"
	"veridesk/internal/console/tracer"
	dErrors "veridesk/pkg/domain-errors"
)

// Operation labels used for write metrics.
const (
	opSetDisposition = "set_disposition"
	opCommitCode     = "commit_code"
	opHide           = "hide"
	opHideAll        = "hide_all"
)

// SetDisposition moderates a single record to approved or rejected. The
// local snapshot mirrors the change before the remote write acknowledgment
// so the console reflects it without perceptible delay. A rejected write
// surfaces a transient error but does not roll the local change back; the
// next delivered change-set reconciles any divergence.
func (e *Engine) SetDisposition(ctx context.Context, id string, disposition models.Disposition) (err error) {
	_, span := e.tracer.Start(ctx, tracer.SpanSetDisposition,
		tracer.String(tracer.AttrRecordID, tracer.HashRecordID(id)),
		tracer.String(tracer.AttrDisposition, string(disposition)),
	)
	defer func() { span.End(err) }()

	if disposition != models.DispositionApproved && disposition != models.DispositionRejected {
		err = dErrors.New(dErrors.CodeInvalidInput, "disposition must be approved or rejected")
		return err
	}

	e.mu.Lock()
	e.mirrorLocked(id, func(r *models.Submission) {
		r.Disposition = disposition
	})
	e.mu.Unlock()

	writeErr := e.collection.Write(ctx, id, store.PatchDisposition(disposition))
	e.metrics.RecordWrite(opSetDisposition, writeErr)
	if writeErr != nil {
		e.logger.Error("disposition write failed",
			"record_id", tracer.HashRecordID(id),
			"disposition", disposition,
			"error", writeErr,
		)
		e.postError("failed to update submission status")
		err = dErrors.Wrap(writeErr, dErrors.CodeWriteFailed, "failed to update submission status")
		return err
	}

	if disposition == models.DispositionApproved {
		e.postSuccess("submission approved")
	} else {
		e.postSuccess("submission rejected")
	}
	return nil
}

// CommitCode writes the staged verification code for a record to the remote
// collection, mirrors it locally, and clears the staging entry. The entry is
// cleared whether or not the write succeeds; a failed commit surfaces an
// error without restoring the staged value. A record with nothing staged is
// a no-op.
func (e *Engine) CommitCode(ctx context.Context, id string) (err error) {
	_, span := e.tracer.Start(ctx, tracer.SpanCommitCode,
		tracer.String(tracer.AttrRecordID, tracer.HashRecordID(id)),
	)
	defer func() { span.End(err) }()

	e.mu.Lock()
	value, staged := e.staged[id]
	if !staged {
		e.mu.Unlock()
		return nil
	}
	e.mirrorLocked(id, func(r *models.Submission) {
		r.Code = value
	})
	e.clearStagedLocked(id)
	e.mu.Unlock()

	writeErr := e.collection.Write(ctx, id, store.PatchCode(value))
	e.metrics.RecordWrite(opCommitCode, writeErr)
	if writeErr != nil {
		e.logger.Error("code commit failed",
			"record_id", tracer.HashRecordID(id),
			"error", writeErr,
		)
		e.postError("failed to update verification code")
		err = dErrors.Wrap(writeErr, dErrors.CodeWriteFailed, "failed to update verification code")
		return err
	}

	e.postSuccess("verification code updated")
	return nil
}

// RequestHide stages a single-record delete behind the confirmation gate.
// A previously pending confirmation, single or bulk, is replaced.
func (e *Engine) RequestHide(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gate.request(id)
}

// RequestHideAll stages a bulk clear of every visible record behind the
// confirmation gate.
func (e *Engine) RequestHideAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gate.request(TargetAll)
}

// Cancel discards the pending confirmation, if any, without acting on it.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gate.clear()
}

// Confirm executes the pending destructive action. The confirmation state
// is consumed before the action runs, so it is cleared whether the action
// succeeds or fails.
func (e *Engine) Confirm(ctx context.Context) error {
	e.mu.Lock()
	target, ok := e.gate.take()
	e.mu.Unlock()

	if !ok {
		return dErrors.New(dErrors.CodeNoPendingConfirmation, "no delete is awaiting confirmation")
	}
	if target == TargetAll {
		return e.hideAll(ctx)
	}
	return e.hideOne(ctx, target)
}

// hideOne flags a single record non-visible. The record leaves the local
// snapshot immediately; a failed write surfaces an error without restoring
// it. Visibility only ever transitions to hidden, never back.
func (e *Engine) hideOne(ctx context.Context, id string) (err error) {
	_, span := e.tracer.Start(ctx, tracer.SpanHide,
		tracer.String(tracer.AttrRecordID, tracer.HashRecordID(id)),
		tracer.Bool(tracer.AttrVisible, false),
	)
	defer func() { span.End(err) }()

	e.mu.Lock()
	e.removeLocked(id)
	e.mu.Unlock()

	writeErr := e.collection.Write(ctx, id, store.PatchHidden(true))
	e.metrics.RecordWrite(opHide, writeErr)
	if writeErr != nil {
		e.logger.Error("hide write failed",
			"record_id", tracer.HashRecordID(id),
			"error", writeErr,
		)
		e.postError("failed to clear submission")
		err = dErrors.Wrap(writeErr, dErrors.CodeWriteFailed, "failed to clear submission")
		return err
	}

	e.postSuccess("submission cleared")
	return nil
}

// hideAll flags every currently visible record non-visible in one atomic
// batch. Unlike the other moderation operations there is no speculative
// local mutation: clearing the whole visible set before the batch outcome
// is known would be too risky to undo. On success the local snapshot is
// cleared; on failure it is left untouched.
func (e *Engine) hideAll(ctx context.Context) (err error) {
	e.mu.Lock()
	updates := make([]store.Update, len(e.snapshot))
	for i, r := range e.snapshot {
		updates[i] = store.Update{ID: r.ID, Patch: store.PatchHidden(true)}
	}
	e.mu.Unlock()

	_, span := e.tracer.Start(ctx, tracer.SpanHideAll,
		tracer.Int64(tracer.AttrBatchSize, int64(len(updates))),
	)
	defer func() { span.End(err) }()

	writeErr := e.collection.BatchWrite(ctx, updates)
	e.metrics.RecordWrite(opHideAll, writeErr)
	if writeErr != nil {
		e.logger.Error("bulk hide failed", "batch_size", len(updates), "error", writeErr)
		e.postError("failed to clear submissions")
		err = dErrors.Wrap(writeErr, dErrors.CodeWriteFailed, "failed to clear submissions")
		return err
	}

	e.mu.Lock()
	e.snapshot = e.snapshot[:0]
	e.mu.Unlock()

	e.postSuccess("all submissions cleared")
	return nil
}
