package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	invoicedomain "github.com/collectra/collectra/internal/invoice/domain"
	"github.com/collectra/collectra/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type listInvoicesQuery struct {
	Status   string `form:"status"`
	DebtorID string `form:"debtor_id"`
	Bucket   string `form:"bucket"`
	pagination.Pagination
}

func (s *Server) ListInvoices(c *gin.Context) {
	var q listInvoicesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	filter := invoicedomain.ListInvoiceFilter{
		Status: invoicedomain.InvoiceStatus(q.Status),
	}
	if q.Bucket != "" {
		bucket := aging.Bucket(q.Bucket)
		if !bucket.Valid() {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		filter.Bucket = bucket
	}
	if q.DebtorID != "" {
		debtorID, err := snowflake.ParseString(q.DebtorID)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		filter.DebtorID = debtorID
	}

	invoices, err := s.invoices.List(c.Request.Context(), s.db, filter, q.Pagination)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	pageInfo := pagination.PageInfo{}
	if size := q.PageSize; size > 0 && len(invoices) == size {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: invoices[len(invoices)-1].ID.String()})
		if err != nil {
			AbortWithError(c, err)
			return
		}
		pageInfo = pagination.PageInfo{NextPageToken: token, HasMore: true}
	}

	c.JSON(http.StatusOK, gin.H{
		"invoices":  invoices,
		"page_info": pageInfo,
	})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	inv, err := s.invoices.FindByID(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if inv == nil {
		AbortWithError(c, invoicedomain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (s *Server) ListInvoiceAssignments(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	assignments, err := s.assignments.ListByInvoice(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignments})
}

func (s *Server) ListInvoiceDrafts(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	drafts, err := s.drafts.ListByInvoice(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}
