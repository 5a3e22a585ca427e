package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aadjones/kent-repertory-etl/internal/assemble"
	"github.com/aadjones/kent-repertory-etl/internal/db"
	"github.com/aadjones/kent-repertory-etl/internal/parser"
	"github.com/aadjones/kent-repertory-etl/internal/repertory"
	"github.com/aadjones/kent-repertory-etl/internal/store"
)

// Worker processes a single chapter-build job.
type Worker struct {
	store    *store.Store
	database *db.DB // nil disables the load phase
	log      *slog.Logger
}

func NewWorker(st *store.Store, database *db.DB, log *slog.Logger) *Worker {
	return &Worker{
		store:    st,
		database: database,
		log:      log,
	}
}

// Process runs the full build pipeline for a job. Failures are recorded on
// the job; one bad document never takes down the worker.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	src, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	stream, err := src.Nodes(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	for _, warn := range stream.Warnings {
		job.AddWarning(warn.Text)
	}

	// Phase 2: Assemble
	job.SetStatus(StatusAssembling, "assembling")
	ch, err := assemble.Chapter(stream, assemble.Meta{
		Title:        job.Title,
		Subject:      job.Subject,
		PagesCovered: job.PagesCovered,
	})
	if err != nil {
		log.Error("assembly failed", "error", err)
		job.AddError(fmt.Sprintf("assemble: %s", err))
		job.SetStatus(StatusFailed, "assembling")
		return
	}
	job.Title = ch.Title
	pages, rubrics, remedies := countChapter(ch)
	job.SetCounts(pages, rubrics, remedies)
	log.Info("chapter assembled", "subject", ch.Subject,
		"pages", pages, "rubrics", rubrics, "remedies", remedies)

	doc, err := json.Marshal(ch)
	if err != nil {
		job.AddError(fmt.Sprintf("encode: %s", err))
		job.SetStatus(StatusFailed, "assembling")
		return
	}
	job.SetDocument(doc)

	// Phase 3: Store JSON
	job.SetStatus(StatusStoring, "storing")
	path, err := w.store.Save(ch)
	if err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}
	job.SetOutputPath(path)
	log.Info("chapter written", "path", path)

	// Phase 4: Load into Postgres, when configured. A load failure after a
	// successful store leaves the job partial, not failed.
	if w.database == nil {
		job.SetStatus(StatusCompleted, "done")
		return
	}
	job.SetStatus(StatusLoading, "loading")
	if err := w.loadChapter(ctx, ch); err != nil {
		log.Error("load failed", "error", err)
		job.AddError(fmt.Sprintf("load: %s", err))
		job.SetStatus(StatusPartial, "loading")
		return
	}
	log.Info("chapter loaded", "title", ch.Title)
	job.SetStatus(StatusCompleted, "done")
}

// loadChapter inserts the chapter, retrying transient database errors.
func (w *Worker) loadChapter(ctx context.Context, ch *repertory.Chapter) error {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		lastErr = w.database.InsertChapter(ctx, ch)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		w.log.Warn("retryable load error", "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func countChapter(ch *repertory.Chapter) (pages, rubrics, remedies int) {
	var walk func(rs []repertory.Rubric)
	walk = func(rs []repertory.Rubric) {
		for _, r := range rs {
			rubrics++
			remedies += len(r.Remedies)
			walk(r.Subrubrics)
		}
	}
	for _, p := range ch.Pages {
		pages++
		walk(p.Rubrics)
	}
	return pages, rubrics, remedies
}
