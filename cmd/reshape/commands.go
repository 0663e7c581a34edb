package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reshapedb/reshape/internal/conversion"
	"github.com/reshapedb/reshape/internal/oplog"
	"github.com/reshapedb/reshape/internal/storage"
	"github.com/reshapedb/reshape/pkg/types"
)

// runMaintenance is the shared body of every maintenance verb: preview on
// --dry-run, otherwise run the pipeline and print the terminal state.
func runMaintenance(cmd *cobra.Command, flags *rootFlags, dryRun bool, req conversion.MaintenanceRequest) error {
	tk, err := openToolkit(flags)
	if err != nil {
		return err
	}
	defer tk.Close()

	if dryRun {
		stmt, err := tk.orch.PreviewMaintenance(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Println(stmt)
		return nil
	}

	res, err := tk.orch.Maintain(cmd.Context(), req)
	if res != nil {
		printResult(res)
	}
	return err
}

func newConvertCmd(flags *rootFlags) *cobra.Command {
	var (
		table         string
		ptype         string
		columns       []string
		intervalExpr  string
		firstBoundary string
		parent        string
		parallel      int
		sample        float64
		dryRun        bool
	)
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a non-partitioned table to a partitioned one, online",
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := openToolkit(flags)
			if err != nil {
				return err
			}
			defer tk.Close()

			req := conversion.ConvertRequest{
				Table:          table,
				Type:           types.PartitionType(strings.ToUpper(ptype)),
				Columns:        columns,
				IntervalExpr:   intervalExpr,
				FirstBoundary:  firstBoundary,
				ParentTable:    parent,
				ParallelDegree: parallel,
			}
			if req.ParallelDegree == 0 {
				req.ParallelDegree = tk.cfg.DefaultParallel
			}
			if cmd.Flags().Changed("sample") {
				req.SamplePercent = &sample
			}

			if dryRun {
				stmt, err := tk.orch.Preview(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Println(stmt)
				return nil
			}

			res, err := tk.orch.ConvertToPartitioned(cmd.Context(), req)
			if res != nil {
				printResult(res)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table to convert")
	cmd.Flags().StringVar(&ptype, "type", "", "target strategy: RANGE, LIST, HASH, INTERVAL, REFERENCE")
	cmd.Flags().StringSliceVar(&columns, "column", nil, "partition key column (repeatable)")
	cmd.Flags().StringVar(&intervalExpr, "interval", "", "interval step expression (INTERVAL only)")
	cmd.Flags().StringVar(&firstBoundary, "first-boundary", "", "seed partition boundary (INTERVAL only)")
	cmd.Flags().StringVar(&parent, "parent", "", "parent table for REFERENCE constraint resolution")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "parallel degree hint")
	cmd.Flags().Float64Var(&sample, "sample", 0, "statistics sample percentage override")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statement without executing")
	cmd.MarkFlagRequired("table")
	cmd.MarkFlagRequired("type")
	return cmd
}

func newSubpartitionCmd(flags *rootFlags) *cobra.Command {
	var (
		table       string
		stype       string
		columns     []string
		count       int
		tablespaces []string
		dryRun      bool
	)
	cmd := &cobra.Command{
		Use:   "add-subpartitioning",
		Short: "Add second-level partitioning to a partitioned table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaintenance(cmd, flags, dryRun, conversion.SubpartitionRequest{
				Table: table,
				Spec: types.SubpartitionSpec{
					Type:        types.SubpartitionType(strings.ToUpper(stype)),
					KeyColumns:  columns,
					Count:       count,
					Tablespaces: tablespaces,
				},
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table to subpartition")
	cmd.Flags().StringVar(&stype, "type", "HASH", "subpartition strategy: HASH, RANGE, LIST")
	cmd.Flags().StringSliceVar(&columns, "column", nil, "subpartition key column (repeatable)")
	cmd.Flags().IntVar(&count, "count", 0, "hash subpartition count (defaults to the tablespace list length)")
	cmd.Flags().StringSliceVar(&tablespaces, "tablespaces", nil, "tablespaces assigned round-robin")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statement without executing")
	cmd.MarkFlagRequired("table")
	return cmd
}

func newSplitCmd(flags *rootFlags) *cobra.Command {
	var (
		table     string
		partition string
		at        string
		into      []string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split one partition in two at a boundary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(into) != 2 {
				return fmt.Errorf("--into requires exactly two partition names, got %d", len(into))
			}
			return runMaintenance(cmd, flags, dryRun, conversion.SplitRequest{
				Table:     table,
				Partition: partition,
				At:        at,
				Into:      [2]string{into[0], into[1]},
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "partitioned table")
	cmd.Flags().StringVar(&partition, "partition", "", "partition to split")
	cmd.Flags().StringVar(&at, "at", "", "split boundary expression")
	cmd.Flags().StringSliceVar(&into, "into", nil, "the two resulting partition names")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statement without executing")
	cmd.MarkFlagRequired("table")
	cmd.MarkFlagRequired("partition")
	cmd.MarkFlagRequired("at")
	cmd.MarkFlagRequired("into")
	return cmd
}

func newMergeCmd(flags *rootFlags) *cobra.Command {
	var (
		table      string
		partitions []string
		into       string
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge adjacent partitions into one",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaintenance(cmd, flags, dryRun, conversion.MergeRequest{
				Table:      table,
				Partitions: partitions,
				Into:       into,
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "partitioned table")
	cmd.Flags().StringSliceVar(&partitions, "partitions", nil, "source partitions, in boundary order")
	cmd.Flags().StringVar(&into, "into", "", "resulting partition name")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statement without executing")
	cmd.MarkFlagRequired("table")
	cmd.MarkFlagRequired("partitions")
	cmd.MarkFlagRequired("into")
	return cmd
}

func newMoveCmd(flags *rootFlags) *cobra.Command {
	var (
		table      string
		partition  string
		tablespace string
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move one partition to another tablespace, online",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaintenance(cmd, flags, dryRun, conversion.MoveRequest{
				Table:      table,
				Partition:  partition,
				Tablespace: tablespace,
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "partitioned table")
	cmd.Flags().StringVar(&partition, "partition", "", "partition to move")
	cmd.Flags().StringVar(&tablespace, "tablespace", "", "target tablespace")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statement without executing")
	cmd.MarkFlagRequired("table")
	cmd.MarkFlagRequired("partition")
	cmd.MarkFlagRequired("tablespace")
	return cmd
}

func newDropCmd(flags *rootFlags) *cobra.Command {
	var (
		table     string
		partition string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop one partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaintenance(cmd, flags, dryRun, conversion.DropRequest{
				Table:     table,
				Partition: partition,
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "partitioned table")
	cmd.Flags().StringVar(&partition, "partition", "", "partition to drop")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statement without executing")
	cmd.MarkFlagRequired("table")
	cmd.MarkFlagRequired("partition")
	return cmd
}

func newTruncateCmd(flags *rootFlags) *cobra.Command {
	var (
		table     string
		partition string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "truncate",
		Short: "Truncate one partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaintenance(cmd, flags, dryRun, conversion.TruncateRequest{
				Table:     table,
				Partition: partition,
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "partitioned table")
	cmd.Flags().StringVar(&partition, "partition", "", "partition to truncate")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statement without executing")
	cmd.MarkFlagRequired("table")
	cmd.MarkFlagRequired("partition")
	return cmd
}

func newExchangeCmd(flags *rootFlags) *cobra.Command {
	var (
		table     string
		partition string
		withTable string
		dryRun    bool
	)
	cmd := &cobra.Command{
		Use:   "exchange",
		Short: "Exchange one partition's segment with a standalone table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaintenance(cmd, flags, dryRun, conversion.ExchangeRequest{
				Table:     table,
				Partition: partition,
				WithTable: withTable,
			})
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "partitioned table")
	cmd.Flags().StringVar(&partition, "partition", "", "partition to exchange")
	cmd.Flags().StringVar(&withTable, "with", "", "standalone table to exchange with")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the statement without executing")
	cmd.MarkFlagRequired("table")
	cmd.MarkFlagRequired("partition")
	cmd.MarkFlagRequired("with")
	return cmd
}

func newAnalyzeCmd(flags *rootFlags) *cobra.Command {
	var (
		table     string
		partition string
		sample    float64
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Collect statistics for a table or one partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := openToolkit(flags)
			if err != nil {
				return err
			}
			defer tk.Close()

			req := conversion.AnalyzeRequest{Table: table, Partition: partition}
			if cmd.Flags().Changed("sample") {
				req.SamplePercent = &sample
			}
			res, err := tk.orch.Analyze(cmd.Context(), req)
			if res != nil {
				printResult(res)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table to analyze")
	cmd.Flags().StringVar(&partition, "partition", "", "limit collection to one partition")
	cmd.Flags().Float64Var(&sample, "sample", 0, "sample percentage override")
	cmd.MarkFlagRequired("table")
	return cmd
}

func newRegisterCmd(flags *rootFlags) *cobra.Command {
	var (
		table   string
		rows    int64
		indexes []string
		fks     []string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a table and its dependent objects in the local catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := openToolkit(flags)
			if err != nil {
				return err
			}
			defer tk.Close()
			ctx := cmd.Context()

			if err := tk.catalog.RegisterTable(ctx, table, false, "", rows); err != nil {
				return err
			}
			for i, spec := range indexes {
				ix, err := parseIndexSpec(spec)
				if err != nil {
					return err
				}
				if err := tk.catalog.RegisterIndex(ctx, table, ix, i); err != nil {
					return err
				}
			}
			for i, spec := range fks {
				fk, err := parseForeignKeySpec(spec)
				if err != nil {
					return err
				}
				if err := tk.catalog.RegisterForeignKey(ctx, table, fk, i); err != nil {
					return err
				}
			}
			fmt.Printf("registered %s (%d indexes, %d foreign keys)\n", table, len(indexes), len(fks))
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "table", "", "table name")
	cmd.Flags().Int64Var(&rows, "rows", 0, "estimated row count")
	cmd.Flags().StringArrayVar(&indexes, "index", nil, "index spec: name:col1,col2[:tablespace] (repeatable)")
	cmd.Flags().StringArrayVar(&fks, "fk", nil, "foreign key spec: name:parent[:col1,col2] (repeatable)")
	cmd.MarkFlagRequired("table")
	return cmd
}

// parseIndexSpec parses "name:col1,col2[:tablespace]".
func parseIndexSpec(spec string) (types.IndexRef, error) {
	fields := strings.Split(spec, ":")
	if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
		return types.IndexRef{}, fmt.Errorf("invalid index spec %q, want name:col1,col2[:tablespace]", spec)
	}
	ix := types.IndexRef{
		Name:    fields[0],
		Columns: strings.Split(fields[1], ","),
	}
	if len(fields) > 2 {
		ix.Tablespace = fields[2]
	}
	return ix, nil
}

// parseForeignKeySpec parses "name:parent[:col1,col2]".
func parseForeignKeySpec(spec string) (types.ConstraintRef, error) {
	fields := strings.Split(spec, ":")
	if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
		return types.ConstraintRef{}, fmt.Errorf("invalid foreign key spec %q, want name:parent[:col1,col2]", spec)
	}
	fk := types.ConstraintRef{
		Name:     fields[0],
		RefTable: fields[1],
	}
	if len(fields) > 2 {
		fk.Columns = strings.Split(fields[2], ",")
	}
	return fk, nil
}

func newOplogCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "oplog",
		Short: "Operation log maintenance",
	}
	cmd.AddCommand(newOplogArchiveCmd(flags), newOplogListCmd(flags))
	return cmd
}

func newOplogArchiveCmd(flags *rootFlags) *cobra.Command {
	var before time.Duration
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Export old operation records to object storage and purge them",
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := openToolkit(flags)
			if err != nil {
				return err
			}
			defer tk.Close()
			ctx := cmd.Context()

			if before == 0 {
				before = time.Duration(tk.cfg.OpLog.RetentionDays) * 24 * time.Hour
			}

			var store storage.ObjectStorage
			if tk.cfg.Archive.Type == "s3" {
				store, err = storage.NewS3Storage(ctx, tk.cfg.Archive.S3.Bucket, storage.S3Config{
					Region:       tk.cfg.Archive.S3.Region,
					Endpoint:     tk.cfg.Archive.S3.Endpoint,
					UsePathStyle: tk.cfg.Archive.S3.UsePathStyle,
				})
			} else {
				store, err = storage.NewLocalStorage(tk.cfg.Archive.Path)
			}
			if err != nil {
				return err
			}

			archiver := oplog.NewArchiver(tk.sink, store, tk.logger)
			n, err := archiver.ArchiveBefore(ctx, time.Now().Add(-before))
			if err != nil {
				return err
			}
			fmt.Printf("archived %d records\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&before, "before", 0, "archive records older than this (defaults to the configured retention)")
	return cmd
}

func newOplogListCmd(flags *rootFlags) *cobra.Command {
	var operationID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the records of one operation run",
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := openToolkit(flags)
			if err != nil {
				return err
			}
			defer tk.Close()

			records, err := tk.sink.List(cmd.Context(), operationID)
			if err != nil {
				return err
			}
			for _, rec := range records {
				fmt.Printf("%s  %-20s %-8s %s", rec.CreatedAt.Format(time.RFC3339), rec.Phase, rec.Status, rec.Table)
				if rec.Partition != "" {
					fmt.Printf(" %s", rec.Partition)
				}
				if rec.ErrorMessage != "" {
					fmt.Printf("  %s", rec.ErrorMessage)
				}
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&operationID, "operation", "", "operation id")
	cmd.MarkFlagRequired("operation")
	return cmd
}
