package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	assignmentdomain "github.com/collectra/collectra/internal/assignment/domain"
	assignmentrepo "github.com/collectra/collectra/internal/assignment/repository"
	"github.com/collectra/collectra/internal/clock"
	"github.com/collectra/collectra/internal/collector"
	"github.com/collectra/collectra/internal/config"
	debtordomain "github.com/collectra/collectra/internal/debtor/domain"
	debtorrepo "github.com/collectra/collectra/internal/debtor/repository"
	draftdomain "github.com/collectra/collectra/internal/draft/domain"
	draftrepo "github.com/collectra/collectra/internal/draft/repository"
	invoicedomain "github.com/collectra/collectra/internal/invoice/domain"
	invoicerepo "github.com/collectra/collectra/internal/invoice/repository"
	workflowdomain "github.com/collectra/collectra/internal/workflow/domain"
	workflowrepo "github.com/collectra/collectra/internal/workflow/repository"
	workflowservice "github.com/collectra/collectra/internal/workflow/service"
	"github.com/collectra/collectra/pkg/db"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	server *Server
	db     *gorm.DB
	node   *snowflake.Node
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbConn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, dbConn.AutoMigrate(
		&invoicedomain.Invoice{},
		&debtordomain.Debtor{},
		&workflowdomain.Definition{},
		&workflowdomain.Step{},
		&assignmentdomain.Assignment{},
		&draftdomain.Draft{},
	))
	require.NoError(t, dbConn.Exec(
		`CREATE UNIQUE INDEX ux_assignment_active ON workflow_assignments (invoice_id) WHERE is_active`,
	).Error)
	require.NoError(t, dbConn.Exec(
		`CREATE UNIQUE INDEX ux_draft_live ON collection_drafts (invoice_id)
		 WHERE status IN ('pending_approval', 'approved', 'sent')`,
	).Error)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	invoices := invoicerepo.Provide()
	debtors := debtorrepo.Provide()
	workflows := workflowrepo.Provide()
	assignments := assignmentrepo.Provide(node)
	drafts := draftrepo.Provide()
	resolver := workflowservice.NewResolver(dbConn, zap.NewNop(), workflows)

	coll, err := collector.New(collector.Params{
		DB:          dbConn,
		Log:         zap.NewNop(),
		Clock:       clock.NewFakeClock(time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)),
		GenID:       node,
		CfgHolder:   config.NewStaticCollectionsConfigHolder(config.DefaultCollectionsConfig()),
		Invoices:    invoices,
		Debtors:     debtors,
		Resolver:    resolver,
		Assignments: assignments,
		Drafts:      drafts,
	})
	require.NoError(t, err)

	srv := NewServer(ServerParams{
		Gin:         NewEngine(zap.NewNop()),
		Cfg:         config.Config{},
		DB:          dbConn,
		Collector:   coll,
		Invoices:    invoices,
		Debtors:     debtors,
		Workflows:   workflows,
		Assignments: assignments,
		Drafts:      drafts,
	})

	return &testServer{server: srv, db: dbConn, node: node}
}

func (ts *testServer) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	ts := setupServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunCollectionsPassEndpoint(t *testing.T) {
	ts := setupServer(t)

	orgID := ts.node.Generate()
	debtor := &debtordomain.Debtor{
		ID: ts.node.Generate(), OrgID: orgID, ContactName: "Jane Doe", Currency: "USD",
	}
	require.NoError(t, ts.db.Create(debtor).Error)

	inv := &invoicedomain.Invoice{
		ID:       ts.node.Generate(),
		OrgID:    orgID,
		DebtorID: debtor.ID,
		Number:   "INV-1",
		Amount:   50000,
		Currency: "USD",
		Status:   invoicedomain.InvoiceStatusOpen,
		DueAt:    time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, ts.db.Create(inv).Error)

	def := &workflowdomain.Definition{
		ID: ts.node.Generate(), Key: "overdue", Name: "Overdue",
		Bucket: aging.BucketDPD31To60, IsActive: true,
	}
	require.NoError(t, ts.db.Create(def).Error)
	step := &workflowdomain.Step{
		ID: ts.node.Generate(), WorkflowID: def.ID, StepOrder: 1,
		Channel: workflowdomain.ChannelEmail,
		Subject: "Overdue", Body: "Dear {{debtor_name}}",
	}
	require.NoError(t, ts.db.Create(step).Error)

	rec := ts.do(t, http.MethodPost, "/v1/collections/run")
	require.Equal(t, http.StatusOK, rec.Code)

	var res collector.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.InvoicesSeen)
	assert.Equal(t, 1, res.InvoicesUpdated)
	assert.Equal(t, 1, res.Assigned)
	assert.Equal(t, 1, res.DraftsCreated)

	// Invoice read surface reflects the pass.
	rec = ts.do(t, http.MethodGet, "/v1/invoices/"+inv.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	var got invoicedomain.Invoice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, aging.BucketDPD31To60, got.AgingBucket)

	rec = ts.do(t, http.MethodGet, "/v1/invoices/"+inv.ID.String()+"/drafts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pending_approval")

	rec = ts.do(t, http.MethodGet, "/v1/invoices/"+inv.ID.String()+"/assignments")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), def.ID.String())
}

func TestGetInvoiceNotFound(t *testing.T) {
	ts := setupServer(t)
	rec := ts.do(t, http.MethodGet, "/v1/invoices/"+ts.node.Generate().String())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetInvoiceInvalidID(t *testing.T) {
	ts := setupServer(t)
	rec := ts.do(t, http.MethodGet, "/v1/invoices/not-a-snowflake")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListWorkflowsRejectsUnknownBucket(t *testing.T) {
	ts := setupServer(t)
	rec := ts.do(t, http.MethodGet, "/v1/workflows?bucket=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListWorkflowsFiltersByBucket(t *testing.T) {
	ts := setupServer(t)

	for _, bucket := range []aging.Bucket{aging.BucketDPD1To30, aging.BucketDPD31To60} {
		def := &workflowdomain.Definition{
			ID: ts.node.Generate(), Key: "wf-" + string(bucket), Name: string(bucket),
			Bucket: bucket, IsActive: true,
		}
		require.NoError(t, ts.db.Create(def).Error)
	}

	rec := ts.do(t, http.MethodGet, "/v1/workflows?bucket=dpd_1_30")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dpd_1_30")
	assert.NotContains(t, rec.Body.String(), "dpd_31_60")
}
