package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tablegraph/backend/internal/datasets"
	"tablegraph/backend/internal/state"
	apperrors "tablegraph/backend/pkg/errors"
)

type handlers struct {
	svc *datasets.Service
	log *zap.Logger
}

type createRowRequest struct {
	TableName string        `json:"table_name" binding:"required"`
	RowData   *state.Values `json:"row_data" binding:"required"`
}

type updateRowRequest struct {
	TableName *string       `json:"table_name"`
	RowData   *state.Values `json:"row_data"`
}

type overrideTagsRequest struct {
	Tags []string `json:"tags"`
}

// respondError maps the error taxonomy onto HTTP status codes
func (h *handlers) respondError(c *gin.Context, err error) {
	switch {
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		h.log.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Bool("retryable", apperrors.IsRetryable(err)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *handlers) bindError(c *gin.Context, err error) {
	if apperrors.IsValidation(err) {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *handlers) listRows(c *gin.Context) {
	rows, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *handlers) getRow(c *gin.Context) {
	row, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *handlers) createRow(c *gin.Context) {
	var req createRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	row, err := h.svc.Create(c.Request.Context(), datasets.CreateInput{
		TableName: req.TableName,
		RowData:   *req.RowData,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (h *handlers) updateRow(c *gin.Context) {
	var req updateRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	row, err := h.svc.Update(c.Request.Context(), c.Param("id"), datasets.UpdateInput{
		TableName: req.TableName,
		RowData:   *req.RowData,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *handlers) deleteRow(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *handlers) overrideTags(c *gin.Context) {
	var req overrideTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	row, err := h.svc.OverrideTags(c.Request.Context(), c.Param("id"), req.Tags)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (h *handlers) regenerate(c *gin.Context) {
	rels, err := h.svc.Regenerate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relationships": rels})
}

func (h *handlers) graph(c *gin.Context) {
	g, err := h.svc.Graph(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *handlers) neighbors(c *gin.Context) {
	hops := -1
	if raw := c.Query("hops"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.respondError(c, apperrors.NewValidationFailed("hops", "must be an integer"))
			return
		}
		hops = n
	}

	n, err := h.svc.Neighborhood(c.Request.Context(), c.Query("node"), hops)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}
