// Command dbexport exports a table and its linked rows as a JSON tree,
// walking foreign-key edges in both directions from a root (table, pk).
// JSON is written to stdout; progress and errors go to stderr, so a caller
// can redirect `> out.json` and still see what happened.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/spf13/cobra"

	"dbexport/internal/canon"
	"dbexport/internal/connector"
	"dbexport/internal/dberrors"
	"dbexport/internal/dialect"
	"dbexport/internal/logger"
	"dbexport/internal/model"
	"dbexport/internal/rowreader"
	"dbexport/internal/walker"
)

var (
	connURL            string
	tableName          string
	pkValue            string
	login              string
	password           string
	stopTablesExcluded []string
	stopTablesIncluded []string
	doCanon            bool
	databaseShortName  string
	timeoutSeconds     int
)

var rootCmd = &cobra.Command{
	Use:   "dbexport",
	Short: "Export a table and its linked rows as a JSON tree",
	Long: `dbexport walks foreign-key edges in both directions from a root
(table, primary key) and emits the reachable row graph as JSON.`,
	RunE:         runExport,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&connURL, "url", "postgres://localhost/demo", "database connection URL")
	rootCmd.Flags().StringVar(&tableName, "table-name", "", "table name to export (required)")
	rootCmd.Flags().StringVar(&pkValue, "pk-value", "", "primary key value of the root row (required)")
	rootCmd.Flags().StringVar(&login, "login", "", "database login")
	rootCmd.Flags().StringVar(&password, "password", "", "database password")
	rootCmd.Flags().StringSliceVar(&stopTablesExcluded, "stop-tables-excluded", nil, "stop tables, excluded (deny-list)")
	rootCmd.Flags().StringSliceVar(&stopTablesIncluded, "stop-tables-included", nil, "stop tables, included (allow-list)")
	rootCmd.Flags().BoolVar(&doCanon, "canon", false, "canonicalize surrogate primary keys before output")
	rootCmd.Flags().StringVar(&databaseShortName, "db", "postgres", "dialect short name (postgres, mysql, sqlserver, sqlite, oracle)")
	rootCmd.Flags().IntVar(&timeoutSeconds, "timeout", 10, "connect timeout, seconds")

	rootCmd.MarkFlagRequired("table-name")
	rootCmd.MarkFlagRequired("pk-value")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runExport(cmd *cobra.Command, args []string) error {
	d := dialect.Normalize(databaseShortName)
	dsn := buildDSN(d, connURL, login, password)

	ctx := logger.WithRequestID(context.Background())
	log := logger.With("cmd")
	log.Infof(ctx, "exporting table %s", tableName)

	db, probe, err := connector.Connect(ctx, d, dsn, time.Duration(timeoutSeconds)*time.Second)
	if err != nil {
		return err
	}
	defer db.Close()

	table := strings.ToLower(tableName)
	pks, err := probe.PrimaryKeys(ctx, db, table)
	if err != nil {
		return err
	}
	if len(pks) == 0 {
		return dberrors.ForTable(dberrors.PrimaryKeyMissing, table, "table has no primary key", nil)
	}
	cols, err := probe.ColumnMetadata(ctx, db, table)
	if err != nil {
		return err
	}
	pkMeta := findColumn(cols, pks[0])

	boundPK, err := rowreader.BindFilterValue(pkValue, pkMeta)
	if err != nil {
		return err
	}

	placeholder := sq.PlaceholderFormat(sq.Question)
	switch d {
	case dialect.Postgres:
		placeholder = sq.Dollar
	case dialect.SQLServer:
		placeholder = sq.AtP
	case dialect.Oracle:
		placeholder = sq.Colon
	}
	reader := rowreader.NewReader(db, nil, placeholder)
	w := walker.New(db, probe, reader, nil, nil, nil)

	opts := walker.Options{
		StopTablesExcluded: stopTablesExcluded,
		StopTablesIncluded: stopTablesIncluded,
	}
	if len(stopTablesExcluded) > 0 {
		log.Infof(ctx, "stopTablesExcluded: %v", stopTablesExcluded)
	}
	if len(stopTablesIncluded) > 0 {
		log.Infof(ctx, "stopTablesIncluded: %v", stopTablesIncluded)
	}

	record, err := w.Export(ctx, table, boundPK, opts)
	if err != nil {
		return err
	}

	if doCanon {
		c := canon.New(db, probe, w.Fks, w.Pks)
		record, err = c.Canonicalize(ctx, record)
		if err != nil {
			return err
		}
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	log.Infof(ctx, "data:")
	fmt.Println(string(out))
	return nil
}

// findColumn looks up a column's metadata by name, case-insensitively.
func findColumn(cols []model.ColumnMetadata, name string) model.ColumnMetadata {
	for _, c := range cols {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return model.ColumnMetadata{Name: name}
}
