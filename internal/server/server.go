// Package server exposes the collections HTTP surface: run trigger, invoice
// and workflow reads, health and metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/collectra/collectra/internal/assignment"
	assignmentdomain "github.com/collectra/collectra/internal/assignment/domain"
	"github.com/collectra/collectra/internal/collector"
	"github.com/collectra/collectra/internal/config"
	"github.com/collectra/collectra/internal/debtor"
	debtordomain "github.com/collectra/collectra/internal/debtor/domain"
	"github.com/collectra/collectra/internal/draft"
	draftdomain "github.com/collectra/collectra/internal/draft/domain"
	"github.com/collectra/collectra/internal/invoice"
	invoicedomain "github.com/collectra/collectra/internal/invoice/domain"
	"github.com/collectra/collectra/internal/workflow"
	workflowdomain "github.com/collectra/collectra/internal/workflow/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	invoice.Module,
	debtor.Module,
	workflow.Module,
	assignment.Module,
	draft.Module,
	collector.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CorrelationMiddleware())
	r.Use(RequestLogMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	collector   *collector.Collector
	invoices    invoicedomain.Repository
	debtors     debtordomain.Repository
	workflows   workflowdomain.Repository
	assignments assignmentdomain.Store
	drafts      draftdomain.Repository
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Collector   *collector.Collector
	Invoices    invoicedomain.Repository
	Debtors     debtordomain.Repository
	Workflows   workflowdomain.Repository
	Assignments assignmentdomain.Store
	Drafts      draftdomain.Repository
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		collector:   p.Collector,
		invoices:    p.Invoices,
		debtors:     p.Debtors,
		workflows:   p.Workflows,
		assignments: p.Assignments,
		drafts:      p.Drafts,
	}

	svc.registerRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/collections/run", s.RunCollectionsPass)

	// -------- Invoices --------
	v1.GET("/invoices", s.ListInvoices)
	v1.GET("/invoices/:id", s.GetInvoiceByID)
	v1.GET("/invoices/:id/assignments", s.ListInvoiceAssignments)
	v1.GET("/invoices/:id/drafts", s.ListInvoiceDrafts)

	// -------- Workflows --------
	v1.GET("/workflows", s.ListWorkflows)
	v1.GET("/workflows/:id", s.GetWorkflowByID)
}
