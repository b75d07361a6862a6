// Package httpapi exposes the ledger over HTTP for browser forms and scripts.
package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/example/labbook/internal/apperr"
	"github.com/example/labbook/internal/models"
	"github.com/example/labbook/internal/ports/primary"
	"github.com/example/labbook/internal/version"
)

// Server translates HTTP requests to LedgerService calls.
type Server struct {
	service         primary.LedgerService
	logger          *logrus.Logger
	defaultOperator string
}

// NewServer creates a Server. defaultOperator fills in records submitted
// without an operator.
func NewServer(service primary.LedgerService, logger *logrus.Logger, defaultOperator string) *Server {
	registerValidators()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{service: service, logger: logger, defaultOperator: defaultOperator}
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), AccessLog(s.logger), gin.Recovery())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/batch-id/next", s.nextBatchID)
		api.GET("/batches/:batch_id", s.getBatch)
		api.POST("/prep", s.logPreparation)
		api.POST("/usage", s.logUsage)

		api.GET("/tables/:table", s.listTable)
		api.PUT("/tables/:table", s.replaceTable)
		api.GET("/tables/:table/schema", s.tableSchema)
		api.GET("/tables/:table/export", s.exportTable)
		api.POST("/tables/:table/publish", s.publishTable)
	}
	return r
}

// PreparationForm is the body of POST /api/prep (JSON or form-encoded).
type PreparationForm struct {
	Material   string            `json:"material" form:"material" binding:"required"`
	Operator   string            `json:"operator" form:"operator"`
	Lots       map[string]string `json:"lots" form:"-"`
	PH         string            `json:"ph" form:"ph" binding:"omitempty,numeric"`
	Sterilized *bool             `json:"sterilized" form:"sterilized"`
	ExpiryDate string            `json:"expiry_date" form:"expiry_date" binding:"omitempty,datetime=2006-01-02"`
	Notes      string            `json:"notes" form:"notes"`
}

// UsageForm is the body of POST /api/usage.
type UsageForm struct {
	Material string `json:"material" form:"material" binding:"required"`
	Operator string `json:"operator" form:"operator"`
	Amount   string `json:"amount" form:"amount"`
	Notes    string `json:"notes" form:"notes"`
}

// SheetBody is the body of PUT /api/tables/:table.
type SheetBody struct {
	Header []string   `json:"header" binding:"required"`
	Rows   [][]string `json:"rows"`
}

type batchURI struct {
	BatchID string `uri:"batch_id" binding:"required,batchid"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.String()})
}

func (s *Server) nextBatchID(c *gin.Context) {
	id, err := s.service.NextBatchID(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"batch_id": id})
}

func (s *Server) getBatch(c *gin.Context) {
	var uri batchURI
	if err := c.ShouldBindUri(&uri); err != nil {
		s.fail(c, bindError(err))
		return
	}

	t, err := s.service.ListRecords(c.Request.Context(), primary.ListRecordsRequest{Table: models.TablePreparation})
	if err != nil {
		s.fail(c, err)
		return
	}
	for _, r := range t.Records {
		if r.BatchID == uri.BatchID {
			c.JSON(http.StatusOK, gin.H{"record": recordJSON(r)})
			return
		}
	}
	s.fail(c, apperr.Derive(apperr.ErrNotFound, fmt.Sprintf("batch %s not found", uri.BatchID)))
}

func (s *Server) logPreparation(c *gin.Context) {
	var form PreparationForm
	if err := c.ShouldBind(&form); err != nil {
		s.fail(c, bindError(err))
		return
	}
	if c.ContentType() != binding.MIMEJSON {
		// Form fields lots[fbs]=F-22 etc.
		if lots := c.PostFormMap("lots"); len(lots) > 0 {
			form.Lots = lots
		}
	}

	resp, err := s.service.LogPreparation(c.Request.Context(), primary.PreparationRequest{
		Material:   form.Material,
		Operator:   s.operator(form.Operator),
		Lots:       form.Lots,
		PH:         form.PH,
		Sterilized: form.Sterilized,
		ExpiryDate: form.ExpiryDate,
		Notes:      form.Notes,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"table": resp.Table, "store": resp.Store, "record": recordJSON(resp.Record)})
}

func (s *Server) logUsage(c *gin.Context) {
	var form UsageForm
	if err := c.ShouldBind(&form); err != nil {
		s.fail(c, bindError(err))
		return
	}

	resp, err := s.service.LogUsage(c.Request.Context(), primary.UsageRequest{
		Material: form.Material,
		Operator: s.operator(form.Operator),
		Amount:   form.Amount,
		Notes:    form.Notes,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"table": resp.Table, "store": resp.Store, "record": recordJSON(resp.Record)})
}

func (s *Server) listTable(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	sch, err := s.service.Schema(table)
	if err != nil {
		s.fail(c, err)
		return
	}

	newest := c.DefaultQuery("order", "newest") != "oldest"
	t, err := s.service.ListRecords(c.Request.Context(), primary.ListRecordsRequest{Table: table, NewestFirst: newest})
	if err != nil {
		s.fail(c, err)
		return
	}
	header, rows, err := sch.Encode(*t)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"table":  table,
		"schema": sch.ID,
		"header": header,
		"rows":   rows,
		"count":  len(rows),
	})
}

func (s *Server) replaceTable(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	var body SheetBody
	if err := c.ShouldBindJSON(&body); err != nil {
		s.fail(c, bindError(err))
		return
	}

	resp, err := s.service.ReplaceTable(c.Request.Context(), primary.ReplaceTableRequest{
		Table:  table,
		Header: body.Header,
		Rows:   body.Rows,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"table":         resp.Table,
		"store":         resp.Store,
		"rows_before":   resp.RowsBefore,
		"rows_after":    resp.RowsAfter,
		"duplicate_ids": resp.DuplicateIDs,
	})
}

func (s *Server) tableSchema(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}
	sch, err := s.service.Schema(table)
	if err != nil {
		s.fail(c, err)
		return
	}

	fields := make([]gin.H, 0, len(sch.Fields))
	for _, f := range sch.Fields {
		fields = append(fields, gin.H{
			"name":      f.Name,
			"header":    f.Header,
			"aliases":   f.Aliases,
			"kind":      f.Kind,
			"role":      f.Role,
			"required":  f.Required,
			"immutable": f.Immutable,
		})
	}
	c.JSON(http.StatusOK, gin.H{"id": sch.ID, "table": sch.Table, "fields": fields})
}

func (s *Server) exportTable(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}

	snap, err := s.service.ExportSnapshot(c.Request.Context(), primary.SnapshotRequest{
		Table:  table,
		Format: c.DefaultQuery("format", "csv"),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snap.Filename))
	c.Data(http.StatusOK, snap.ContentType, snap.Data)
}

func (s *Server) publishTable(c *gin.Context) {
	table, ok := s.table(c)
	if !ok {
		return
	}

	resp, err := s.service.PublishSnapshot(c.Request.Context(), primary.SnapshotRequest{
		Table:  table,
		Format: c.DefaultQuery("format", "csv"),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"filename": resp.Filename, "location": resp.Location})
}

// Helper methods

func (s *Server) table(c *gin.Context) (models.TableKind, bool) {
	table, ok := models.ParseTableKind(c.Param("table"))
	if !ok {
		s.fail(c, apperr.Derive(apperr.ErrNotFound, fmt.Sprintf("unknown table %q", c.Param("table"))))
		return "", false
	}
	return table, true
}

func (s *Server) operator(given string) string {
	if strings.TrimSpace(given) != "" {
		return given
	}
	return s.defaultOperator
}

func (s *Server) fail(c *gin.Context, err error) {
	c.Error(err)
	c.AbortWithStatusJSON(apperr.Status(err), gin.H{
		"error":      apperr.Payload(err),
		"request_id": RequestIDFromCtx(c),
	})
}

func recordJSON(r models.Record) gin.H {
	return gin.H{
		"batch_id":  r.BatchID,
		"timestamp": r.Timestamp,
		"material":  r.Material,
		"operator":  r.Operator,
		"lots":      r.Lots,
		"notes":     r.Notes,
		"attrs":     r.Attrs,
	}
}
