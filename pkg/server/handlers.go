package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/benjaminschreck/go-finiquito/pkg/history"
	"github.com/benjaminschreck/go-finiquito/pkg/merge"
	"github.com/benjaminschreck/go-finiquito/pkg/sheet"
)

const (
	msgMissingFiles = "⚠️ Debes subir ambos archivos."
	msgProcessed    = "✅ Archivos procesados con éxito. Descarga en la carpeta de procesados."
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	config  Config
	engine  *merge.Engine
	cache   *merge.TemplateCache
	history *history.Store
	logger  *zap.Logger
}

// NewHandlers creates handlers with a fresh engine and template cache.
func NewHandlers(config Config, logger *zap.Logger) *Handlers {
	return &Handlers{
		config: config,
		engine: merge.NewEngine(),
		cache:  merge.NewTemplateCache(),
		logger: logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	History   bool   `json:"history"`
}

type indexPage struct {
	Mensaje string
	Reporte *merge.BatchReport
}

// Index handles GET /
func (h *Handlers) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", indexPage{})
}

// Process handles POST /: both uploads are stored, every record of the
// workbook is merged into the template and the documents are written to
// the processed directory.
func (h *Handlers) Process(c *gin.Context) {
	excel, errExcel := c.FormFile("excel")
	word, errWord := c.FormFile("word")
	if errExcel != nil || errWord != nil || excel.Size == 0 || word.Size == 0 {
		c.HTML(http.StatusBadRequest, "index.html", indexPage{Mensaje: msgMissingFiles})
		return
	}

	if err := os.MkdirAll(h.config.UploadDir, 0755); err != nil {
		h.fail(c, "Failed to create upload directory", err)
		return
	}
	excelPath := filepath.Join(h.config.UploadDir, SecureFilename(excel.Filename))
	wordPath := filepath.Join(h.config.UploadDir, SecureFilename(word.Filename))
	if err := c.SaveUploadedFile(excel, excelPath); err != nil {
		h.fail(c, "Failed to save workbook", err)
		return
	}
	if err := c.SaveUploadedFile(word, wordPath); err != nil {
		h.fail(c, "Failed to save template", err)
		return
	}

	table, err := sheet.NewLoader(h.config.Sheet, h.logger).LoadFile(excelPath)
	if err != nil {
		h.logger.Warn("Unreadable workbook", zap.String("file", excelPath), zap.Error(err))
		c.HTML(http.StatusUnprocessableEntity, "index.html", indexPage{Mensaje: "⚠️ No se pudo leer el Excel: " + err.Error()})
		return
	}
	// uploads reuse file names, so templates are cached by content
	tmpl, err := h.loadTemplate(wordPath)
	if err != nil {
		h.logger.Warn("Unreadable template", zap.String("file", wordPath), zap.Error(err))
		c.HTML(http.StatusUnprocessableEntity, "index.html", indexPage{Mensaje: "⚠️ No se pudo leer la plantilla: " + err.Error()})
		return
	}

	driver := &merge.Driver{
		Engine:    h.engine,
		Workers:   h.config.Workers,
		NameField: h.config.NameField,
		Logger:    merge.FromZap(h.logger),
	}
	report, err := driver.Run(c.Request.Context(), tmpl, table.Records, merge.DirSink{Dir: h.config.ProcessedDir})
	if report == nil {
		h.fail(c, "Batch could not start", err)
		return
	}
	if err != nil {
		h.logger.Warn("Batch interrupted", zap.Error(err))
	}

	if h.history != nil {
		src := history.Source{
			Template:       word.Filename,
			TemplateDigest: tmpl.Digest(),
			DataSource:     excel.Filename,
		}
		if _, err := h.history.Record(c.Request.Context(), src, report); err != nil {
			h.logger.Error("Failed to store batch history", zap.Error(err))
		}
	}

	c.HTML(http.StatusOK, "index.html", indexPage{Mensaje: msgProcessed, Reporte: report})
}

func (h *Handlers) loadTemplate(path string) (*merge.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, merge.NewDocumentError("read", path, err)
	}
	return h.cache.LoadBytes(filepath.Base(path), data)
}

func (h *Handlers) fail(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	c.HTML(http.StatusInternalServerError, "index.html", indexPage{Mensaje: "⚠️ Error interno al procesar los archivos."})
}

// Downloads handles GET /descargas
func (h *Handlers) Downloads(c *gin.Context) {
	files, err := h.processedFiles()
	if err != nil {
		h.logger.Error("Failed to list processed files", zap.Error(err))
		c.String(http.StatusInternalServerError, "no se pudo listar la carpeta de procesados")
		return
	}
	c.HTML(http.StatusOK, "descargas.html", gin.H{"Archivos": files})
}

func (h *Handlers) processedFiles() ([]string, error) {
	entries, err := os.ReadDir(h.config.ProcessedDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Download handles GET /download/:filename
func (h *Handlers) Download(c *gin.Context) {
	name := c.Param("filename")
	if !isPlainFileName(name) {
		h.logger.Warn("Rejected download path", zap.String("filename", name))
		c.String(http.StatusBadRequest, "nombre de archivo inválido")
		return
	}
	path := filepath.Join(h.config.ProcessedDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		c.String(http.StatusNotFound, "archivo no encontrado")
		return
	}
	c.FileAttachment(path, name)
}

func isPlainFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..") && filepath.Base(name) == name
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			History:   h.history != nil,
		},
	})
}

// ListBatchesRequest represents query parameters for listing batches
type ListBatchesRequest struct {
	Limit int `form:"limit"`
}

// ListBatches handles GET /api/batches
func (h *Handlers) ListBatches(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Error: "history is disabled"})
		return
	}
	var req ListBatchesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid query parameters"})
		return
	}
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 20
	}

	batches, err := h.history.ListBatches(c.Request.Context(), req.Limit)
	if err != nil {
		h.logger.Error("Failed to list batches", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Error: "failed to retrieve batches"})
		return
	}
	if batches == nil {
		batches = []*history.Batch{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: batches})
}

// BatchResponse is a batch with its record outcomes
type BatchResponse struct {
	*history.Batch
	Records []*history.RecordOutcome `json:"records"`
}

// GetBatch handles GET /api/batches/:id
func (h *Handlers) GetBatch(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, Response{Error: "history is disabled"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid batch ID"})
		return
	}

	batch, err := h.history.GetBatch(c.Request.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, Response{Error: "batch not found"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get batch", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Error: "failed to retrieve batch"})
		return
	}
	outcomes, err := h.history.Outcomes(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get outcomes", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Error: "failed to retrieve batch"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: BatchResponse{Batch: batch, Records: outcomes}})
}

// SecureFilename reduces an uploaded file name to ASCII letters, digits,
// "_", "." and "-". Accents are dropped, whitespace becomes "_" and
// leading dots are removed. An empty result becomes "archivo".
func SecureFilename(name string) string {
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	var sb strings.Builder
	for _, r := range norm.NFKD.String(name) {
		switch {
		case r > unicode.MaxASCII:
		case unicode.IsSpace(r):
			sb.WriteByte(' ')
		case r == '_' || r == '.' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		}
	}
	out := strings.Trim(strings.Join(strings.Fields(sb.String()), "_"), "._")
	if out == "" {
		return "archivo"
	}
	return out
}
