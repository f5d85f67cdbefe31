package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/benjaminschreck/go-finiquito/pkg/history"
	"github.com/benjaminschreck/go-finiquito/pkg/merge"
	"github.com/benjaminschreck/go-finiquito/pkg/sheet"
)

type generateOptions struct {
	data      string
	template  string
	output    string
	noHistory bool
}

func newGenerateCommand(a *app) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one document per employee",
		Long: `Generate reads the CALCULO sheet of the workbook (header on row 6 by
default), fills the template once per employee and writes
"<Nombre completo>.docx" into the output directory. Rows without a name are
skipped.

When a path is missing and the terminal is interactive, it is asked for.

Example:
  finiquitos generate --data nomina.xlsx --template finiquito.docx --output finiquitos
  finiquitos generate -d nomina.xlsx -t finiquito.docx --workers 4 --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGenerate(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.data, "data", "d", "", "payroll workbook (.xlsx)")
	flags.StringVarP(&opts.template, "template", "t", "", "Word template (.docx)")
	flags.StringVarP(&opts.output, "output", "o", "", "output directory")
	flags.BoolVar(&opts.noHistory, "no-history", false, "do not record the batch in the history database")
	flags.Int("workers", 0, "records rendered concurrently")
	flags.Bool("strict", false, "fail records whose document still contains placeholders")
	flags.String("sheet", "", "worksheet name")
	flags.Int("header-row", 0, "1-based row holding the column names")
	_ = a.viper.BindPFlag("workers", flags.Lookup("workers"))
	_ = a.viper.BindPFlag("strict_mode", flags.Lookup("strict"))
	_ = a.viper.BindPFlag("sheet.name", flags.Lookup("sheet"))
	_ = a.viper.BindPFlag("sheet.header_row", flags.Lookup("header-row"))
	return cmd
}

// resolvePaths fills missing paths from prompts when interactive. The output
// directory falls back to the configured one otherwise.
func (a *app) resolvePaths(opts *generateOptions) error {
	interactive := a.interactive()
	ask := func(value *string, message, def string) error {
		if *value != "" {
			return nil
		}
		if !interactive {
			*value = def
			return nil
		}
		answer, err := a.prompter.Input(message, def)
		if err != nil {
			return err
		}
		*value = strings.TrimSpace(answer)
		return nil
	}

	if err := ask(&opts.data, "Archivo Excel con los datos:", ""); err != nil {
		return err
	}
	if err := ask(&opts.template, "Plantilla de Word:", ""); err != nil {
		return err
	}
	if err := ask(&opts.output, "Carpeta de salida:", a.cfg.Output.Dir); err != nil {
		return err
	}

	var missing []string
	if opts.data == "" {
		missing = append(missing, "--data")
	}
	if opts.template == "" {
		missing = append(missing, "--template")
	}
	if opts.output == "" {
		missing = append(missing, "--output")
	}
	if len(missing) > 0 {
		return fmt.Errorf("no se seleccionaron todos los archivos necesarios: falta %s", strings.Join(missing, ", "))
	}
	return nil
}

func (a *app) runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	if err := a.resolvePaths(opts); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	cfg := a.cfg

	table, err := sheet.NewLoader(sheet.Options{Sheet: cfg.Sheet.Name, HeaderRow: cfg.Sheet.HeaderRow}, a.logger).LoadFile(opts.data)
	if err != nil {
		return err
	}
	tmpl, err := merge.LoadTemplateFile(opts.template)
	if err != nil {
		return err
	}
	for _, issue := range tmpl.Report().Issues {
		a.logger.Warn("Template issue",
			zap.String("code", string(issue.Code)),
			zap.String("token", issue.Token),
			zap.String("location", issue.Location.String()),
			zap.String("message", issue.Message))
	}

	mlog := merge.FromZap(a.logger)
	driver := &merge.Driver{
		Engine: &merge.Engine{
			Overlay: cfg.FormattingOverlay(),
			Strict:  cfg.StrictMode,
			Logger:  mlog,
		},
		Workers:   cfg.Workers,
		NameField: cfg.Sheet.NameField,
		Logger:    mlog,
		OnResult:  progressPrinter(out),
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := driver.Run(ctx, tmpl, table.Records, merge.DirSink{Dir: opts.output})
	if report == nil {
		return runErr
	}

	fmt.Fprintf(out, "\nProceso completado: %s\n", report.Summary())
	if report.Cancelled > 0 {
		fmt.Fprintf(out, "%d registros no se procesaron por la cancelación\n", report.Cancelled)
	}

	if !opts.noHistory && cfg.History.Path != "" {
		a.recordHistory(ctx, opts, tmpl, report)
	}

	if runErr != nil {
		return runErr
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d documentos con error: %w", report.Failed, report.Err())
	}
	return nil
}

// progressPrinter reports each finished record. The driver serializes calls.
func progressPrinter(w io.Writer) func(merge.RecordResult) {
	return func(res merge.RecordResult) {
		switch res.Status {
		case merge.StatusGenerated:
			fmt.Fprintf(w, "Documento generado: %s\n", res.Path)
		case merge.StatusFailed:
			fmt.Fprintf(w, "Error en el registro %d (%s): %v\n", res.Index+1, res.Name, res.Err)
		}
	}
}

func (a *app) recordHistory(ctx context.Context, opts *generateOptions, tmpl *merge.Template, report *merge.BatchReport) {
	db, err := history.Open(history.DefaultConfig(a.cfg.History.Path), a.logger)
	if err != nil {
		a.logger.Warn("History unavailable", zap.Error(err))
		return
	}
	defer db.Close()

	src := history.Source{
		Template:       tmpl.Name,
		TemplateDigest: tmpl.Digest(),
		DataSource:     opts.data,
	}
	// a cancelled run is still recorded
	if errors.Is(ctx.Err(), context.Canceled) {
		ctx = context.WithoutCancel(ctx)
	}
	if _, err := history.NewStore(db, a.logger).Record(ctx, src, report); err != nil {
		a.logger.Warn("Failed to record batch", zap.Error(err))
	}
}
