package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/benjaminschreck/go-finiquito/pkg/history"
	"github.com/benjaminschreck/go-finiquito/pkg/merge"
	"github.com/benjaminschreck/go-finiquito/pkg/sheet"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func templateBytes(t *testing.T) []byte {
	t.Helper()
	return templateBytesWith(t, "Recibí")
}

func templateBytesWith(t *testing.T, verb string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/></Types>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			`<w:p><w:r><w:t>«Nombre_completo»</w:t></w:r></w:p>` +
			`<w:p><w:r><w:t xml:space="preserve">` + verb + ` la cantidad de $ «NETO»</w:t></w:r></w:p>` +
			`</w:body></w:document>`,
	}
	for name, content := range parts {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(f, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func workbookBytes(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "CALCULO"))
	require.NoError(t, f.SetSheetRow("CALCULO", "A6", &[]interface{}{"Nombre completo", "NETO"}))
	require.NoError(t, f.SetSheetRow("CALCULO", "A7", &[]interface{}{"Ana López", 1234.56}))
	require.NoError(t, f.SetSheetRow("CALCULO", "A8", &[]interface{}{nil, 10}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

type fixture struct {
	server *Server
	config Config
	store  *history.Store
}

func newFixture(t *testing.T, withHistory bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		Addr:         "127.0.0.1:0",
		UploadDir:    filepath.Join(dir, "uploads"),
		ProcessedDir: filepath.Join(dir, "processed"),
		Sheet:        sheet.Options{Sheet: "CALCULO", HeaderRow: 6},
		Workers:      1,
	}
	engine := &merge.Engine{Overlay: merge.DefaultOverlay(), Logger: merge.NewLogger(io.Discard, merge.LogOff)}

	fx := &fixture{config: cfg}
	opts := []Option{WithEngine(engine)}
	if withHistory {
		db, err := history.Open(history.DefaultConfig(filepath.Join(dir, "history.db")), nil)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		fx.store = history.NewStore(db, nil)
		opts = append(opts, WithHistory(fx.store))
	}

	srv, err := NewServer(cfg, nil, opts...)
	require.NoError(t, err)
	fx.server = srv
	return fx
}

func (fx *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	fx.server.Router().ServeHTTP(w, req)
	return w
}

func uploadRequest(t *testing.T, files map[string][]byte, names map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, data := range files {
		part, err := mw.CreateFormFile(field, names[field])
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestIndex(t *testing.T) {
	fx := newFixture(t, false)
	w := fx.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Generador de finiquitos")
	assert.Contains(t, w.Body.String(), `name="excel"`)
	assert.Contains(t, w.Body.String(), `name="word"`)
}

func TestProcessRequiresBothFiles(t *testing.T) {
	fx := newFixture(t, false)
	req := uploadRequest(t,
		map[string][]byte{"excel": workbookBytes(t)},
		map[string]string{"excel": "datos.xlsx"})

	w := fx.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Debes subir ambos archivos")
}

func TestProcessGeneratesDocuments(t *testing.T) {
	fx := newFixture(t, true)
	req := uploadRequest(t,
		map[string][]byte{"excel": workbookBytes(t), "word": templateBytes(t)},
		map[string]string{"excel": "../datos nómina.xlsx", "word": "plantilla.docx"})

	w := fx.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Archivos procesados con éxito")
	assert.Contains(t, w.Body.String(), "1 generados, 1 omitidos, 0 con error")

	assert.FileExists(t, filepath.Join(fx.config.UploadDir, "datos_nomina.xlsx"))
	assert.FileExists(t, filepath.Join(fx.config.UploadDir, "plantilla.docx"))

	out := filepath.Join(fx.config.ProcessedDir, "Ana López.docx")
	require.FileExists(t, out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	tmpl, err := merge.ParseTemplate(data)
	require.NoError(t, err)
	doc, err := tmpl.NewDocument()
	require.NoError(t, err)
	var texts []string
	for p := range doc.XML.Paragraphs() {
		texts = append(texts, p.GetText())
	}
	assert.Equal(t, []string{
		"Ana López",
		"Recibí la cantidad de $ 1 234.56 (MIL DOSCIENTOS TREINTA Y CUATRO PESOS 56/100 M.N.)",
	}, texts)

	batches, err := fx.store.ListBatches(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "plantilla.docx", batches[0].Template)
	assert.Equal(t, "datos nómina.xlsx", batches[0].DataSource)
	assert.Equal(t, 1, batches[0].Generated)
	assert.Equal(t, 1, batches[0].Skipped)
}

func TestProcessReplacedTemplateWithSameName(t *testing.T) {
	fx := newFixture(t, false)
	out := filepath.Join(fx.config.ProcessedDir, "Ana López.docx")

	secondLine := func() string {
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		tmpl, err := merge.ParseTemplate(data)
		require.NoError(t, err)
		doc, err := tmpl.NewDocument()
		require.NoError(t, err)
		var texts []string
		for p := range doc.XML.Paragraphs() {
			texts = append(texts, p.GetText())
		}
		require.Len(t, texts, 2)
		return texts[1]
	}

	// both templates have the same name and size
	for _, verb := range []string{"Recibí", "Recibá"} {
		req := uploadRequest(t,
			map[string][]byte{"excel": workbookBytes(t), "word": templateBytesWith(t, verb)},
			map[string]string{"excel": "datos.xlsx", "word": "plantilla.docx"})
		w := fx.do(req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.True(t, strings.HasPrefix(secondLine(), verb+" la cantidad"), "template %s not used", verb)
	}
}

func TestProcessRejectsBadWorkbook(t *testing.T) {
	fx := newFixture(t, false)
	req := uploadRequest(t,
		map[string][]byte{"excel": []byte("not a workbook"), "word": templateBytes(t)},
		map[string]string{"excel": "datos.xlsx", "word": "plantilla.docx"})

	w := fx.do(req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "No se pudo leer el Excel")
}

func TestDownloads(t *testing.T) {
	fx := newFixture(t, false)

	w := fx.do(httptest.NewRequest(http.MethodGet, "/descargas", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No hay documentos procesados")

	require.NoError(t, os.MkdirAll(fx.config.ProcessedDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(fx.config.ProcessedDir, "Ana López.docx"), []byte("docx"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(fx.config.ProcessedDir, "sub"), 0755))

	w = fx.do(httptest.NewRequest(http.MethodGet, "/descargas", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ana López.docx")
	assert.NotContains(t, w.Body.String(), ">sub<")

	w = fx.do(httptest.NewRequest(http.MethodGet, "/download/Ana%20L%C3%B3pez.docx", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "docx", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
}

func TestDownloadRejectsTraversal(t *testing.T) {
	fx := newFixture(t, false)
	require.NoError(t, os.MkdirAll(fx.config.ProcessedDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(fx.config.UploadDir+".txt"), []byte("secret"), 0644))

	for _, target := range []string{"/download/..", "/download/..%5Cuploads.txt", "/download/..uploads.txt"} {
		w := fx.do(httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}

	w := fx.do(httptest.NewRequest(http.MethodGet, "/download/missing.docx", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthCheck(t *testing.T) {
	fx := newFixture(t, false)
	w := fx.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "healthy", resp.Data.Status)
	assert.False(t, resp.Data.History)
}

func TestBatchesAPI(t *testing.T) {
	fx := newFixture(t, true)

	w := fx.do(httptest.NewRequest(http.MethodGet, "/api/batches", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())

	req := uploadRequest(t,
		map[string][]byte{"excel": workbookBytes(t), "word": templateBytes(t)},
		map[string]string{"excel": "datos.xlsx", "word": "plantilla.docx"})
	require.Equal(t, http.StatusOK, fx.do(req).Code)

	w = fx.do(httptest.NewRequest(http.MethodGet, "/api/batches?limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []history.Batch `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	id := list.Data[0].ID

	w = fx.do(httptest.NewRequest(http.MethodGet, "/api/batches/"+jsonNumber(id), nil))
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Data BatchResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	require.Len(t, detail.Data.Records, 2)
	assert.Equal(t, "generated", detail.Data.Records[0].Status)
	assert.Equal(t, "skipped", detail.Data.Records[1].Status)

	assert.Equal(t, http.StatusNotFound, fx.do(httptest.NewRequest(http.MethodGet, "/api/batches/999", nil)).Code)
	assert.Equal(t, http.StatusBadRequest, fx.do(httptest.NewRequest(http.MethodGet, "/api/batches/abc", nil)).Code)
}

func TestBatchesAPIWithoutHistory(t *testing.T) {
	fx := newFixture(t, false)
	w := fx.do(httptest.NewRequest(http.MethodGet, "/api/batches", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestNewServerRequiresDirectories(t *testing.T) {
	_, err := NewServer(Config{}, nil)
	assert.Error(t, err)
}

func TestSecureFilename(t *testing.T) {
	tests := map[string]string{
		"plantilla.docx":          "plantilla.docx",
		"datos nómina.xlsx":       "datos_nomina.xlsx",
		"../../etc/passwd":        "etc_passwd",
		`C:\Users\ana\datos.xlsx`: "C_Users_ana_datos.xlsx",
		".hidden":                 "hidden",
		"¿¡!?":                    "archivo",
	}
	for in, want := range tests {
		assert.Equal(t, want, SecureFilename(in), in)
	}
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return strings.TrimSpace(string(b))
}
