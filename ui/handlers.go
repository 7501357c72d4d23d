package ui

import (
	"fmt"
	"html"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"datalens/app"
	"datalens/internal/errors"
	"datalens/internal/tabs"
)

func (s *Server) handleIndex(c *gin.Context) {
	c.Header("Content-Type", "text/html")
	desc := s.store.Get()
	if err := s.templates.ExecuteTemplate(c.Writer, "index.html", gin.H{
		"Dataset": desc,
	}); err != nil {
		s.log.Error("index render failed: %v", err)
		c.String(http.StatusInternalServerError, "template error")
	}
}

func (s *Server) handleUpload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, errors.New(errors.CodeUnsupportedFileType, "no file provided"))
		return
	}
	file, err := header.Open()
	if err != nil {
		s.respondError(c, errors.Wrap(err, "could not open upload"))
		return
	}
	defer file.Close()

	outcome, err := s.service.UploadFile(c.Request.Context(), header.Filename, header.Size, file)
	if err != nil {
		s.log.Warn("upload of %s failed: %v", header.Filename, err)
		s.respondError(c, err)
		return
	}
	desc := outcome.Descriptor
	s.log.Info("upload %s stored as %s (%d columns)", desc.Filename, desc.FileID, len(desc.Columns))

	if isHXRequest(c) {
		c.Header("Content-Type", "text/html")
		c.String(http.StatusOK, s.uploadFragment(outcome))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"filename":          desc.Filename,
		"file_id":           desc.FileID,
		"available_columns": desc.Columns,
		"row_count":         desc.RowCount,
	})
}

func (s *Server) handleTab(c *gin.Context) {
	tab, err := tabs.ParseTab(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tab"})
		return
	}
	view, err := s.tabs.Activate(c.Request.Context(), tab)
	s.respondView(c, view, err)
}

func (s *Server) handleTabRefresh(c *gin.Context) {
	tab, err := tabs.ParseTab(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown tab"})
		return
	}
	view, err := s.tabs.Refresh(c.Request.Context(), tab)
	s.respondView(c, view, err)
}

func (s *Server) handleFilter(c *gin.Context) {
	var req struct {
		Columns   []string `json:"columns" form:"columns"`
		Column    string   `json:"column" form:"column"`
		MinValue  string   `json:"min_value" form:"min_value"`
		MaxValue  string   `json:"max_value" form:"max_value"`
		ActiveTab string   `json:"active_tab" form:"active_tab"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter request"})
		return
	}
	tab, err := tabs.ParseTab(req.ActiveTab)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown tab %q", req.ActiveTab)})
		return
	}
	view, err := s.service.ApplyFilter(c.Request.Context(), app.FilterParams{
		Columns:  req.Columns,
		Column:   req.Column,
		MinValue: req.MinValue,
		MaxValue: req.MaxValue,
	}, tab)
	s.respondView(c, view, err)
}

func (s *Server) handleHistogramColumn(c *gin.Context) {
	column := c.PostForm("column")
	if column == "" {
		column = c.Query("column")
	}
	if column == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "column is required"})
		return
	}
	view, err := s.tabs.SwitchHistogramColumn(c.Request.Context(), column)
	s.respondView(c, view, err)
}

func (s *Server) handleSession(c *gin.Context) {
	desc := s.store.Get()
	if desc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no dataset loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filename":     desc.Filename,
		"file_id":      desc.FileID,
		"columns":      desc.Columns,
		"row_count":    desc.RowCount,
		"column_count": desc.ColumnCount,
	})
}

// handleChartSpec serves the live chart spec for one slot. The browser chart
// runtime polls this after swapping in a fragment that owns a canvas.
func (s *Server) handleChartSpec(c *gin.Context) {
	slot := c.Param("slot")
	spec, ok := s.registry.Spec(slot)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no live chart in slot %q", slot)})
		return
	}
	canvasID, _ := s.registry.Surface(slot)
	c.JSON(http.StatusOK, gin.H{"canvas_id": canvasID, "spec": spec})
}

func (s *Server) handleNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": s.tabs.Notifications()})
}

func (s *Server) handleDismissNotification(c *gin.Context) {
	s.tabs.Dismiss(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// respondView renders a tab view, falling back to an error response when the
// fetch failed and no fragment is available.
func (s *Server) respondView(c *gin.Context, view *tabs.View, err error) {
	if err != nil {
		s.respondError(c, err)
		return
	}
	if view.Stale {
		// Superseded by a newer request; nothing to swap in.
		c.Status(http.StatusNoContent)
		return
	}
	if isHXRequest(c) {
		c.Header("Content-Type", "text/html")
		c.String(http.StatusOK, view.Fragment)
		return
	}
	c.JSON(http.StatusOK, view)
}

// uploadFragment is the HTML swapped in after a successful upload: the
// dataset summary strip followed by the default overview render.
func (s *Server) uploadFragment(outcome *app.UploadOutcome) string {
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, "upload_result.html", gin.H{
		"Dataset":  outcome.Descriptor,
		"Overview": template.HTML(outcome.OverviewFragment),
	}); err != nil {
		s.log.Error("upload fragment render failed: %v", err)
		return `<div class="error-message">display error</div>`
	}
	return buf.String()
}

func isHXRequest(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}

// statusForCode maps the error taxonomy onto HTTP statuses
func statusForCode(code string) int {
	switch code {
	case errors.CodeNoDatasetLoaded, errors.CodeUnsupportedFileType, errors.CodeInsufficientData:
		return http.StatusBadRequest
	case errors.CodeTimeout:
		return http.StatusGatewayTimeout
	case errors.CodeHTTPStatus, errors.CodeServerReported, errors.CodeDecode:
		return http.StatusBadGateway
	case errors.CodeSurfaceNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := statusForCode(code)
	if isHXRequest(c) {
		c.Header("Content-Type", "text/html")
		c.String(status, fmt.Sprintf(`<div class="error-message" data-code="%s">%s</div>`,
			code, html.EscapeString(err.Error())))
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
