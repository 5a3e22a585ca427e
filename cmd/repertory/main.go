package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/aadjones/kent-repertory-etl/internal/assemble"
	"github.com/aadjones/kent-repertory-etl/internal/db"
	"github.com/aadjones/kent-repertory-etl/internal/fetch"
	"github.com/aadjones/kent-repertory-etl/internal/parser"
	"github.com/aadjones/kent-repertory-etl/internal/repertory"
	"github.com/aadjones/kent-repertory-etl/internal/store"
	"github.com/aadjones/kent-repertory-etl/internal/textutil"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "repertory",
		Short: "Kent repertory ETL",
		Long: `repertory converts digitized Kent repertory pages into normalized
chapter documents.

It parses HTML, Markdown, plain-text, DOCX and PDF transcriptions, grades
remedy mentions from their formatting, groups rubrics by printed page, and
writes one JSON document per chapter, optionally loading it into Postgres.`,
		Version: version,
	}

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(loadCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a local source file into a chapter document",
		Long: `Parse a digitized chapter file and write the normalized JSON document.

Example:
  repertory parse --source kent0000_P1.html --out out/
  repertory parse --source kent0000_P1.html --subject MIND --identifier 0000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			source, _ := cmd.Flags().GetString("source")
			out, _ := cmd.Flags().GetString("out")
			title, _ := cmd.Flags().GetString("title")
			subject, _ := cmd.Flags().GetString("subject")
			pagesCovered, _ := cmd.Flags().GetString("pages-covered")
			identifier, _ := cmd.Flags().GetString("identifier")

			if source == "" {
				return fmt.Errorf("--source flag is required")
			}

			data, err := fetch.File(source)
			if err != nil {
				return err
			}
			return buildChapter(data, filepath.Base(source), out, assembleMeta(title, subject, pagesCovered, identifier))
		},
	}
	cmd.Flags().String("source", "", "path to the source file")
	cmd.Flags().String("out", "out", "output directory for chapter JSON")
	cmd.Flags().String("title", "", "override the chapter title")
	cmd.Flags().String("subject", "", "chapter subject, e.g. MIND")
	cmd.Flags().String("pages-covered", "", "printed-page span, e.g. P1-P5")
	cmd.Flags().String("identifier", "", "four-digit Kent file number, used to compute the page span")
	return cmd
}

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch a source file from the archive mirror and build its chapter",
		Long: `Download a digitized chapter from the archive mirror, parse it, and write
the normalized JSON document.

Example:
  repertory fetch --name kent0000_P1.html --identifier 0000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			mirror, _ := cmd.Flags().GetString("mirror")
			out, _ := cmd.Flags().GetString("out")
			title, _ := cmd.Flags().GetString("title")
			subject, _ := cmd.Flags().GetString("subject")
			pagesCovered, _ := cmd.Flags().GetString("pages-covered")
			identifier, _ := cmd.Flags().GetString("identifier")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			if name == "" {
				return fmt.Errorf("--name flag is required")
			}

			client := fetch.NewClient(mirror, timeout, 0)
			defer client.Close()

			fmt.Printf("Fetching %s from %s\n", name, mirror)
			data, err := client.Document(cmd.Context(), name)
			if err != nil {
				return err
			}
			return buildChapter(data, filepath.Base(name), out, assembleMeta(title, subject, pagesCovered, identifier))
		},
	}
	cmd.Flags().String("name", "", "source file name on the mirror")
	cmd.Flags().String("mirror", "http://homeoint.org/kent", "archive mirror base URL")
	cmd.Flags().String("out", "out", "output directory for chapter JSON")
	cmd.Flags().String("title", "", "override the chapter title")
	cmd.Flags().String("subject", "", "chapter subject, e.g. MIND")
	cmd.Flags().String("pages-covered", "", "printed-page span, e.g. P1-P5")
	cmd.Flags().String("identifier", "", "four-digit Kent file number, used to compute the page span")
	cmd.Flags().Duration("timeout", 30*time.Second, "fetch timeout")
	return cmd
}

func loadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [chapter.json ...]",
		Short: "Load chapter documents into Postgres",
		Long: `Load one or more chapter JSON documents into Postgres, creating the
schema if needed. The connection string comes from --database-url or the
DATABASE_URL environment variable.

Example:
  repertory load out/chapter_kent_repertory_kent0000.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			connStr, _ := cmd.Flags().GetString("database-url")
			if connStr == "" {
				connStr = os.Getenv("DATABASE_URL")
			}
			if connStr == "" {
				return fmt.Errorf("--database-url or DATABASE_URL is required")
			}

			ctx := cmd.Context()
			database, err := db.NewDB(ctx, connStr)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := database.Initialize(ctx); err != nil {
				return err
			}

			for _, path := range args {
				ch, err := readChapter(path)
				if err != nil {
					return err
				}
				if err := database.InsertChapter(ctx, ch); err != nil {
					return fmt.Errorf("load %s: %w", path, err)
				}
				fmt.Printf("Loaded %s (%s)\n", ch.Title, ch.Subject)
			}
			return nil
		},
	}
	cmd.Flags().String("database-url", "", "Postgres connection string")
	return cmd
}

// assembleMeta resolves the chapter metadata flags; an identifier fills in
// the page span when none was given.
func assembleMeta(title, subject, pagesCovered, identifier string) assemble.Meta {
	if pagesCovered == "" && identifier != "" {
		if span, err := textutil.PageRange(identifier); err == nil {
			pagesCovered = span
		}
	}
	return assemble.Meta{Title: title, Subject: subject, PagesCovered: pagesCovered}
}

func buildChapter(data []byte, filename, out string, meta assemble.Meta) error {
	src, err := parser.ForFile(filename)
	if err != nil {
		return err
	}
	stream, err := src.Nodes(bytes.NewReader(data), filename)
	if err != nil {
		return fmt.Errorf("parse %s: %w", filename, err)
	}
	for _, warn := range stream.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s: %s\n", warn.Kind, warn.Text)
	}

	ch, err := assemble.Chapter(stream, meta)
	if err != nil {
		return err
	}

	st, err := store.New(out)
	if err != nil {
		return err
	}
	path, err := st.Save(ch)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%s, %d pages)\n", path, ch.Subject, len(ch.Pages))
	return nil
}

func readChapter(path string) (*repertory.Chapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ch repertory.Chapter
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &ch, nil
}
