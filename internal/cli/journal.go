package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qir/internal/store"
)

// JournalOptions holds flags for the journal commands.
type JournalOptions struct {
	*RootOptions
	FromDSL     bool
	Fingerprint string // list filter
}

// RecordView is the JSON form of a journal record.
type RecordView struct {
	ID          string `json:"id"`
	Seq         int64  `json:"seq"`
	Namespace   string `json:"namespace"`
	Fingerprint string `json:"fingerprint"`
	Bytes       int    `json:"bytes"`
	Dump        string `json:"dump"`
}

func newRecordView(rec store.Record) RecordView {
	return RecordView{
		ID:          rec.ID,
		Seq:         rec.Seq,
		Namespace:   rec.Namespace,
		Fingerprint: rec.Fingerprint,
		Bytes:       len(rec.Payload),
		Dump:        rec.Dump,
	}
}

func (r RecordView) text() string {
	return fmt.Sprintf("%d %s %s", r.Seq, r.ID, r.Dump)
}

// NewJournalCommand creates the journal command group.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Record and inspect queries in a SQLite journal",
		Long: `Record encoded queries in a SQLite journal and read them back.

Examples:
  qir journal record ./queries.db "select * from items limit 10"
  qir journal list ./queries.db
  qir journal show ./queries.db 0190f0c2-...`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "record <db> <query>",
		Short:         "Append a query to the journal",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalRecord(opts, args[0], args[1], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "list <db>",
		Short:         "List journaled queries in append order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalList(opts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <db> <id>",
		Short:         "Decode one journaled query",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournalShow(opts, args[0], args[1], cmd)
		},
	})

	cmd.PersistentFlags().BoolVar(&opts.FromDSL, "dsl", false, "record: read the query from a JSON DSL file")
	cmd.PersistentFlags().StringVar(&opts.Fingerprint, "fingerprint", "", "list: only records with this fingerprint")

	return cmd
}

// openJournal opens the journal database and reports failures through f.
func openJournal(f *OutputFormatter, path string) (*store.Store, error) {
	st, err := store.Open(path, store.WithLogger(slog.Default()))
	if err != nil {
		_ = f.Error(ErrCodeJournal, err.Error(), map[string]any{"path": path})
		return nil, WrapExitError(ExitCommandError, ErrCodeJournal, err)
	}
	return st, nil
}

func journalError(f *OutputFormatter, err error) error {
	code := ErrCodeJournal
	if errors.Is(err, store.ErrNotFound) {
		code = ErrCodeNotFound
	}
	_ = f.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}

func runJournalRecord(opts *JournalOptions, dbPath, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	q, err := loadQuery(cmd, formatter, arg, opts.FromDSL)
	if err != nil {
		return err
	}

	st, err := openJournal(formatter, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Append(context.Background(), q)
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	view := newRecordView(rec)
	return formatter.Success(view, view.text())
}

func runJournalList(opts *JournalOptions, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	st, err := openJournal(formatter, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	var records []store.Record
	if opts.Fingerprint != "" {
		records, err = st.ListByFingerprint(ctx, opts.Fingerprint)
	} else {
		records, err = st.List(ctx)
	}
	if err != nil {
		return journalError(formatter, err)
	}

	views := make([]RecordView, len(records))
	lines := make([]string, len(records))
	for i, rec := range records {
		views[i] = newRecordView(rec)
		lines[i] = views[i].text()
	}
	text := strings.Join(lines, "\n")
	if len(records) == 0 {
		text = "Journal is empty."
	}
	return formatter.Success(views, text)
}

func runJournalShow(opts *JournalOptions, dbPath, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout())

	st, err := openJournal(formatter, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	rec, err := st.Get(context.Background(), id)
	if err != nil {
		return journalError(formatter, err)
	}
	q, err := rec.Query()
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	view, err := buildView(q, viewOptions{})
	if err != nil {
		return formatter.Fail(ExitFailure, err)
	}
	return formatter.Success(view, view.text())
}
