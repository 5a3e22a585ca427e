// Package db loads assembled chapter documents into Postgres. The schema
// mirrors the document tree: chapters own pages, pages own top-level rubrics,
// rubrics own remedies and nest through parent_id.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aadjones/kent-repertory-etl/internal/repertory"
)

// DB represents the database connection
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB creates a new database connection
func NewDB(ctx context.Context, connStr string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Initialize sets up the database tables and indices
func (db *DB) Initialize(ctx context.Context) error {
	_, err := db.Pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS chapters (
            id SERIAL PRIMARY KEY,
            title TEXT NOT NULL,
            subject TEXT NOT NULL,
            pages_covered TEXT,
            UNIQUE (title)
        );
        CREATE TABLE IF NOT EXISTS pages (
            id SERIAL PRIMARY KEY,
            chapter_id INTEGER NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
            label TEXT NOT NULL,
            position INTEGER NOT NULL
        );
        CREATE TABLE IF NOT EXISTS rubrics (
            id SERIAL PRIMARY KEY,
            page_id INTEGER NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
            parent_id INTEGER REFERENCES rubrics(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            related_rubrics TEXT[],
            position INTEGER NOT NULL
        );
        CREATE TABLE IF NOT EXISTS remedies (
            id SERIAL PRIMARY KEY,
            rubric_id INTEGER NOT NULL REFERENCES rubrics(id) ON DELETE CASCADE,
            name TEXT NOT NULL,
            grade INTEGER NOT NULL,
            position INTEGER NOT NULL
        );
    `)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	_, err = db.Pool.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS pages_chapter_idx ON pages (chapter_id);
        CREATE INDEX IF NOT EXISTS rubrics_page_idx ON rubrics (page_id);
        CREATE INDEX IF NOT EXISTS rubrics_parent_idx ON rubrics (parent_id);
        CREATE INDEX IF NOT EXISTS rubrics_title_idx ON rubrics (lower(title));
        CREATE INDEX IF NOT EXISTS remedies_rubric_idx ON remedies (rubric_id);
    `)
	if err != nil {
		return fmt.Errorf("failed to create indices: %w", err)
	}
	return nil
}

// InsertChapter loads a full chapter document in one transaction. An existing
// chapter with the same title is replaced.
func (db *DB) InsertChapter(ctx context.Context, ch *repertory.Chapter) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chapters WHERE title = $1`, ch.Title); err != nil {
		return fmt.Errorf("delete existing chapter: %w", err)
	}

	var pagesCovered *string
	if ch.PageInfo != nil {
		pagesCovered = &ch.PageInfo.PagesCovered
	}
	var chapterID int
	err = tx.QueryRow(ctx, `
        INSERT INTO chapters (title, subject, pages_covered)
        VALUES ($1, $2, $3) RETURNING id
    `, ch.Title, ch.Subject, pagesCovered).Scan(&chapterID)
	if err != nil {
		return fmt.Errorf("insert chapter: %w", err)
	}

	for i, page := range ch.Pages {
		var pageID int
		err = tx.QueryRow(ctx, `
            INSERT INTO pages (chapter_id, label, position)
            VALUES ($1, $2, $3) RETURNING id
        `, chapterID, page.Page, i).Scan(&pageID)
		if err != nil {
			return fmt.Errorf("insert page %s: %w", page.Page, err)
		}
		if err := insertRubrics(ctx, tx, pageID, nil, page.Rubrics); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chapter: %w", err)
	}
	return nil
}

// insertRubrics inserts a sibling list and recurses into subrubrics.
func insertRubrics(ctx context.Context, tx pgx.Tx, pageID int, parentID *int, rubrics []repertory.Rubric) error {
	for i, rub := range rubrics {
		var related []string
		if len(rub.RelatedRubrics) > 0 {
			related = rub.RelatedRubrics
		}
		var rubricID int
		err := tx.QueryRow(ctx, `
            INSERT INTO rubrics (page_id, parent_id, title, description, related_rubrics, position)
            VALUES ($1, $2, $3, $4, $5, $6) RETURNING id
        `, pageID, parentID, rub.Title, rub.Description, related, i).Scan(&rubricID)
		if err != nil {
			return fmt.Errorf("insert rubric %q: %w", rub.Title, err)
		}
		for j, rem := range rub.Remedies {
			_, err := tx.Exec(ctx, `
                INSERT INTO remedies (rubric_id, name, grade, position)
                VALUES ($1, $2, $3, $4)
            `, rubricID, rem.Name, rem.Grade, j)
			if err != nil {
				return fmt.Errorf("insert remedy %q: %w", rem.Name, err)
			}
		}
		if err := insertRubrics(ctx, tx, pageID, &rubricID, rub.Subrubrics); err != nil {
			return err
		}
	}
	return nil
}

// ChapterTitles lists the chapters currently loaded, ordered by subject.
func (db *DB) ChapterTitles(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `SELECT title FROM chapters ORDER BY subject, title`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return titles, nil
}

// Close closes the database connection
func (db *DB) Close() {
	db.Pool.Close()
}
