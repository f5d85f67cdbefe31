package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/benjaminschreck/go-finiquito/pkg/history"
	"github.com/benjaminschreck/go-finiquito/pkg/merge"
)

// fakePrompter answers prompts in order and records the questions.
type fakePrompter struct {
	answers []string
	asked   []string
	err     error
}

func (f *fakePrompter) Input(message, def string) (string, error) {
	f.asked = append(f.asked, message)
	if f.err != nil {
		return "", f.err
	}
	if len(f.answers) == 0 {
		return def, nil
	}
	answer := f.answers[0]
	f.answers = f.answers[1:]
	if answer == "" {
		return def, nil
	}
	return answer, nil
}

func testApp(interactive bool, prompter Prompter) *app {
	a := newApp()
	a.interactive = func() bool { return interactive }
	if prompter != nil {
		a.prompter = prompter
	}
	return a
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--log-level", "off"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTemplate(t *testing.T, dir, body string) string {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = io.WriteString(f, `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`+body+`</w:body></w:document>`)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := filepath.Join(dir, "finiquito.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

const templateBody = `<w:p><w:r><w:t>«Nombre_completo»</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t xml:space="preserve">Recibí la cantidad de $ «NETO»</w:t></w:r></w:p>`

func writeWorkbook(t *testing.T, dir string) string {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "CALCULO"))
	require.NoError(t, f.SetSheetRow("CALCULO", "A6", &[]interface{}{"Nombre completo", "NETO"}))
	require.NoError(t, f.SetSheetRow("CALCULO", "A7", &[]interface{}{"Ana López", 1234.56}))
	require.NoError(t, f.SetSheetRow("CALCULO", "A8", &[]interface{}{"", 10}))
	require.NoError(t, f.SetSheetRow("CALCULO", "A9", &[]interface{}{"Luis/Pérez", 0}))

	path := filepath.Join(dir, "nomina.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, testApp(false, nil), "version")
	require.NoError(t, err)
	assert.Equal(t, "finiquitos v"+Version+"\n", out)
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	data := writeWorkbook(t, dir)
	tmpl := writeTemplate(t, dir, templateBody)
	outDir := filepath.Join(dir, "salida")

	out, err := run(t, testApp(false, nil), "generate", "--no-history",
		"--data", data, "--template", tmpl, "--output", outDir)
	require.NoError(t, err)

	assert.Contains(t, out, "Documento generado: "+filepath.Join(outDir, "Ana López.docx"))
	assert.Contains(t, out, "Documento generado: "+filepath.Join(outDir, "Luis-Pérez.docx"))
	assert.Contains(t, out, "Proceso completado: 2 generados, 1 omitidos, 0 con error")
	assert.FileExists(t, filepath.Join(outDir, "Ana López.docx"))
	assert.FileExists(t, filepath.Join(outDir, "Luis-Pérez.docx"))
}

func TestGenerateRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db", "history.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("history:\n  path: "+dbPath+"\nworkers: 2\n"), 0644))

	_, err := run(t, testApp(false, nil), "--config", cfgPath, "generate",
		"-d", writeWorkbook(t, dir), "-t", writeTemplate(t, dir, templateBody), "-o", filepath.Join(dir, "out"))
	require.NoError(t, err)

	db, err := history.Open(history.DefaultConfig(dbPath), nil)
	require.NoError(t, err)
	defer db.Close()

	batches, err := history.NewStore(db, nil).ListBatches(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "finiquito.docx", batches[0].Template)
	assert.Equal(t, 2, batches[0].Generated)
	assert.Equal(t, 1, batches[0].Skipped)
}

func TestGenerateMissingPathsNonInteractive(t *testing.T) {
	_, err := run(t, testApp(false, nil), "generate", "--no-history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--data")
	assert.Contains(t, err.Error(), "--template")
	assert.NotContains(t, err.Error(), "--output")
}

func TestGeneratePromptsForMissingPaths(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "prompted")
	prompter := &fakePrompter{answers: []string{
		writeWorkbook(t, dir),
		"  " + writeTemplate(t, dir, templateBody) + " ",
		outDir,
	}}

	out, err := run(t, testApp(true, prompter), "generate", "--no-history")
	require.NoError(t, err)
	assert.Len(t, prompter.asked, 3)
	assert.Contains(t, out, "Proceso completado: 2 generados")
	assert.FileExists(t, filepath.Join(outDir, "Ana López.docx"))
}

func TestGeneratePromptsOnlyForWhatIsMissing(t *testing.T) {
	dir := t.TempDir()
	prompter := &fakePrompter{answers: []string{writeTemplate(t, dir, templateBody)}}

	_, err := run(t, testApp(true, prompter), "generate", "--no-history",
		"--data", writeWorkbook(t, dir), "--output", filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Plantilla de Word:"}, prompter.asked)
}

func TestGenerateEmptyAnswerAborts(t *testing.T) {
	prompter := &fakePrompter{answers: []string{"   "}}
	_, err := run(t, testApp(true, prompter), "generate", "--no-history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no se seleccionaron todos los archivos")
}

func TestGeneratePromptInterrupted(t *testing.T) {
	prompter := &fakePrompter{err: ErrAborted}
	_, err := run(t, testApp(true, prompter), "generate", "--no-history")
	assert.True(t, errors.Is(err, ErrAborted))
}

func TestGenerateStrictReportsFailures(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeTemplate(t, dir, templateBody+`<w:p><w:r><w:t>«Desconocido»</w:t></w:r></w:p>`)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, testApp(false, nil), "generate", "--no-history", "--strict",
		"-d", writeWorkbook(t, dir), "-t", tmpl, "-o", outDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 documentos con error")
	assert.Contains(t, out, "Error en el registro 1 (Ana López)")
	assert.Contains(t, out, "0 generados, 1 omitidos, 2 con error")
}

func TestGenerateBadWorkbook(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("nope"), 0644))

	_, err := run(t, testApp(false, nil), "generate", "--no-history",
		"-d", bad, "-t", writeTemplate(t, dir, templateBody), "-o", dir)
	assert.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	out, err := run(t, testApp(false, nil), "placeholders")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 18)
	assert.Contains(t, out, "«NETO»")
	assert.Contains(t, out, "net-amount")
	assert.Contains(t, out, "daily-rate")
	assert.Contains(t, out, "Salario por día")
}

func TestPlaceholdersInspectsTemplate(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, testApp(false, nil), "placeholders", "--template", writeTemplate(t, dir, templateBody))
	require.NoError(t, err)
	assert.Contains(t, out, "Plantilla finiquito.docx")
	assert.Contains(t, out, "No usados: 15")

	split := writeTemplate(t, dir, `<w:p><w:r><w:t>«NE</w:t></w:r><w:r><w:t>TO»</w:t></w:r></w:p>`)
	out, err = run(t, testApp(false, nil), "placeholders", "-t", split)
	require.Error(t, err)
	assert.True(t, merge.IsValidationError(err))
	assert.Contains(t, out, "[error] «NETO»")
}

func TestConfigShow(t *testing.T) {
	t.Setenv("FINIQUITO_WORKERS", "3")
	t.Setenv("FINIQUITO_OVERLAY_FONT", "Arial")

	out, err := run(t, testApp(false, nil), "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "workers: 3")
	assert.Contains(t, out, "font: Arial")
	assert.Contains(t, out, "header_row: 6")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "finiquitos.yaml")

	_, err := run(t, testApp(false, nil), "config", "init", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: CALCULO")

	_, err = run(t, testApp(false, nil), "config", "init", path)
	assert.Error(t, err)

	_, err = run(t, testApp(false, nil), "config", "init", "--force", path)
	assert.NoError(t, err)

	// the written file loads back
	_, err = run(t, testApp(false, nil), "--config", path, "config", "show")
	assert.NoError(t, err)
}

func TestInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: -4\n"), 0644))

	_, err := run(t, testApp(false, nil), "--config", path, "version")
	assert.Error(t, err)
}
