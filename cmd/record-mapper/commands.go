package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"

	"record-mapper/ingest"
	"record-mapper/internal/config"
	"record-mapper/internal/dateparse"
	"record-mapper/internal/mapping"
	"record-mapper/internal/pipeline"
	"record-mapper/internal/units"
	"record-mapper/registry"
	"record-mapper/schema"
	"record-mapper/store"
	"record-mapper/warehouse"
)

// app is the state shared by the commands that touch records.
type app struct {
	cfg     *config.Config
	catalog *warehouse.Catalog
	reg     *registry.Registry
}

func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	conv, err := loadUnits(cfg.Units)
	if err != nil {
		return nil, err
	}

	var mf *mapping.MappingFile
	if cfg.Mapping != "" {
		if mf, err = mapping.LoadFile(cfg.Mapping); err != nil {
			return nil, err
		}
	}

	catalog, err := warehouse.NewCatalog(conv, mf)
	if err != nil {
		return nil, fmt.Errorf("failed to define records: %w", err)
	}

	reg := registry.New()
	for _, t := range catalog.Roots() {
		if _, err := reg.Register(t, registry.InNamespace(cfg.Namespace)); err != nil {
			return nil, err
		}
	}

	return &app{cfg: cfg, catalog: catalog, reg: reg}, nil
}

func loadUnits(path string) (*units.Converter, error) {
	if path == "" {
		return units.Default(), nil
	}

	return units.LoadFile(path)
}

func runDDL(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("ddl", stderr)
	configPath := fs.String("config", "", "path to config yaml")
	driver := fs.String("driver", "", "render for this driver instead of the configured one")

	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(*configPath)
	if err != nil {
		return err
	}

	name := a.cfg.Storage.Driver
	if *driver != "" {
		name = *driver
	}

	d, err := schema.DialectFor(name)
	if err != nil {
		return err
	}

	var stmts []string
	for _, s := range a.reg.Schemas() {
		stmts = append(stmts, s.DDL(d)...)
	}

	_, err = io.WriteString(stdout, schema.Script(stmts))

	return err
}

func runIngest(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := newFlagSet("ingest", stderr)
	configPath := fs.String("config", "", "path to config yaml")
	create := fs.Bool("create", false, "create missing tables first")
	comma := fs.String("comma", ",", "CSV field delimiter")
	recordName := fs.String("record", "Assessment", "record type of each row")
	metricsPath := fs.String("metrics", "", "write metrics in Prometheus text format to this file")
	reportsPath := fs.String("reports", "", "write the error reports as JSON lines to this file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("%w: ingest needs one CSV file", errUsage)
	}

	sep, size := utf8.DecodeRuneInString(*comma)
	if size == 0 || size != len(*comma) {
		return fmt.Errorf("%w: -comma must be a single character", errUsage)
	}

	a, err := loadApp(*configPath)
	if err != nil {
		return err
	}

	t, ok := a.catalog.Root(*recordName)
	if !ok {
		return fmt.Errorf("%w: unknown record %q", errUsage, *recordName)
	}

	log := a.cfg.NewLogger(stderr)

	in := stdin
	if path := fs.Arg(0); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()

		in = f
	}

	db, err := store.Open(ctx, a.cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()

	if *create {
		if err := db.CreateAll(ctx, a.reg); err != nil {
			return err
		}
	}

	promReg := prometheus.NewRegistry()

	metrics, err := pipeline.NewMetrics(promReg)
	if err != nil {
		return err
	}

	p := pipeline.New(db, a.reg, ingest.New(a.cfg.EngineOptions()...),
		pipeline.WithLogger(log),
		pipeline.WithMetrics(metrics),
		pipeline.WithWorkers(a.cfg.Workers),
		pipeline.WithBatchSize(a.cfg.BatchSize),
	)

	r, err := pipeline.NewReader(in, sep)
	if err != nil {
		return err
	}

	sum, runErr := p.Run(ctx, t, r)

	fmt.Fprintf(stdout, "run %s: %d rows, %d saved, %d absent, %d invalid in %s\n",
		sum.RunID, sum.Rows, sum.Saved, sum.Absent, sum.Invalid, sum.Duration.Round(time.Millisecond))

	if len(sum.MissingKeys) > 0 {
		fmt.Fprintf(stdout, "columns not in the input: %s\n", strings.Join(sum.MissingKeys, ", "))
	}

	if *reportsPath != "" {
		if err := writeReports(*reportsPath, sum); err != nil {
			return err
		}
	}

	if *metricsPath != "" {
		if err := prometheus.WriteToTextfile(*metricsPath, promReg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	return runErr
}

type reportLine struct {
	Run    string         `json:"run"`
	Row    int            `json:"row"`
	Errors *ingest.Report `json:"errors"`
}

func writeReports(path string, sum *pipeline.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create reports file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)

	rows := make([]int, 0, len(sum.Reports))
	for row := range sum.Reports {
		rows = append(rows, row)
	}

	slices.Sort(rows)

	for _, row := range rows {
		if err := enc.Encode(reportLine{Run: sum.RunID.String(), Row: row, Errors: sum.Reports[row]}); err != nil {
			return fmt.Errorf("failed to write report of row %d: %w", row, err)
		}
	}

	return f.Close()
}

func runConvert(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("convert", stderr)
	unitsPath := fs.String("units", "", "unit table yaml instead of the embedded one")
	dimension := fs.String("dimension", "density", "dimension of the units")
	list := fs.Bool("list", false, "list the units of the dimension")

	if err := fs.Parse(args); err != nil {
		return err
	}

	conv, err := loadUnits(*unitsPath)
	if err != nil {
		return err
	}

	if *list {
		names, err := conv.Units(*dimension)
		if err != nil {
			return err
		}

		for _, name := range names {
			fmt.Fprintln(stdout, name)
		}

		return nil
	}

	if fs.NArg() != 3 {
		return fmt.Errorf("%w: convert needs value, source unit and target unit", errUsage)
	}

	value, err := strconv.ParseFloat(fs.Arg(0), 64)
	if err != nil {
		return fmt.Errorf("%w: invalid value %q", errUsage, fs.Arg(0))
	}

	out, err := conv.Convert(value, *dimension, fs.Arg(1), fs.Arg(2))
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "%s %s\n", strconv.FormatFloat(out, 'g', -1, 64), fs.Arg(2))

	return nil
}

func runDate(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("date", stderr)

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		return fmt.Errorf("%w: date needs at least one value", errUsage)
	}

	var failed int

	for _, s := range fs.Args() {
		if v, err := dateparse.ParseDateTime(s); err == nil {
			fmt.Fprintf(stdout, "%s\tdatetime\t%s\n", s, v.Format(time.RFC3339))
			continue
		}

		if v, err := dateparse.ParseDate(s); err == nil {
			fmt.Fprintf(stdout, "%s\tdate\t%s\n", s, v)
			continue
		}

		if v, err := dateparse.ParseTime(s); err == nil {
			fmt.Fprintf(stdout, "%s\ttime\t%s\n", s, v)
			continue
		}

		failed++

		fmt.Fprintf(stdout, "%s\tinvalid\t-\n", s)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d values could not be parsed", failed, fs.NArg())
	}

	return nil
}
