package collector

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	assignmentdomain "github.com/collectra/collectra/internal/assignment/domain"
	assignmentrepo "github.com/collectra/collectra/internal/assignment/repository"
	"github.com/collectra/collectra/internal/clock"
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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	collector *Collector
	db        *gorm.DB
	node      *snowflake.Node
	clock     *clock.FakeClock
	store     assignmentdomain.Store
	drafts    draftdomain.Repository
}

func setupCollector(t *testing.T) *fixture {
	t.Helper()

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

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fakeClock := clock.NewFakeClock(time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC))
	store := assignmentrepo.Provide(node)
	drafts := draftrepo.Provide()

	c, err := New(Params{
		DB:          dbConn,
		Log:         zap.NewNop(),
		Clock:       fakeClock,
		GenID:       node,
		CfgHolder:   config.NewStaticCollectionsConfigHolder(config.DefaultCollectionsConfig()),
		Invoices:    invoicerepo.Provide(),
		Debtors:     debtorrepo.Provide(),
		Resolver:    workflowservice.NewResolver(dbConn, zap.NewNop(), workflowrepo.Provide()),
		Assignments: store,
		Drafts:      drafts,
	})
	require.NoError(t, err)

	return &fixture{
		collector: c,
		db:        dbConn,
		node:      node,
		clock:     fakeClock,
		store:     store,
		drafts:    drafts,
	}
}

func (f *fixture) seedDebtor(t *testing.T, orgID snowflake.ID, contact, company string) *debtordomain.Debtor {
	t.Helper()
	d := &debtordomain.Debtor{
		ID:          f.node.Generate(),
		OrgID:       orgID,
		ContactName: contact,
		CompanyName: company,
		Currency:    "USD",
	}
	require.NoError(t, f.db.Create(d).Error)
	return d
}

func (f *fixture) seedInvoice(t *testing.T, orgID, debtorID snowflake.ID, status invoicedomain.InvoiceStatus, dueDaysAgo int, stored aging.Bucket, enteredDaysAgo int) *invoicedomain.Invoice {
	t.Helper()
	now := f.clock.Now()
	inv := &invoicedomain.Invoice{
		ID:          f.node.Generate(),
		OrgID:       orgID,
		DebtorID:    debtorID,
		Number:      "INV-" + f.node.Generate().String(),
		Amount:      50000,
		Currency:    "USD",
		Status:      status,
		DueAt:       now.AddDate(0, 0, -dueDaysAgo),
		AgingBucket: stored,
	}
	if stored != "" {
		entered := now.AddDate(0, 0, -enteredDaysAgo)
		inv.BucketEnteredAt = &entered
	}
	require.NoError(t, f.db.Create(inv).Error)
	return inv
}

func (f *fixture) seedWorkflow(t *testing.T, orgID *snowflake.ID, bucket aging.Bucket, steps ...workflowdomain.Step) *workflowdomain.Definition {
	t.Helper()
	def := &workflowdomain.Definition{
		ID:       f.node.Generate(),
		OrgID:    orgID,
		Key:      "cadence-" + string(bucket),
		Name:     "Cadence " + string(bucket),
		Bucket:   bucket,
		IsActive: true,
	}
	require.NoError(t, f.db.Create(def).Error)
	for i := range steps {
		steps[i].ID = f.node.Generate()
		steps[i].WorkflowID = def.ID
		if steps[i].StepOrder == 0 {
			steps[i].StepOrder = i + 1
		}
		if steps[i].Channel == "" {
			steps[i].Channel = workflowdomain.ChannelEmail
		}
		require.NoError(t, f.db.Create(&steps[i]).Error)
	}
	return def
}

func TestRunPassEscalatesReassignsAndDrafts(t *testing.T) {
	f := setupCollector(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	debtor := f.seedDebtor(t, orgID, "Jane Doe", "Acme Corp")
	// 45 days past due but still labeled dpd_1_30 from the previous pass.
	inv := f.seedInvoice(t, orgID, debtor.ID, invoicedomain.InvoiceStatusOpen, 45, aging.BucketDPD1To30, 20)

	oldWf := f.seedWorkflow(t, nil, aging.BucketDPD1To30, workflowdomain.Step{
		DayOffset: 0, Subject: "Reminder", Body: "Hi {{debtor_name}}",
	})
	newWf := f.seedWorkflow(t, nil, aging.BucketDPD31To60, workflowdomain.Step{
		DayOffset: 0,
		Subject:   "Invoice {{invoice_number}} is overdue",
		Body:      "Dear {{debtor_name}}, invoice {{invoice_number}} for {{amount}} is due.",
	})

	prior, err := f.store.Reassign(ctx, f.db, nil, assignmentdomain.NewAssignment{
		OrgID: orgID, InvoiceID: inv.ID, WorkflowID: oldWf.ID, Bucket: aging.BucketDPD1To30,
	}, f.clock.Now().AddDate(0, 0, -20))
	require.NoError(t, err)

	res, err := f.collector.RunPass(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, res.InvoicesSeen)
	assert.Equal(t, 1, res.InvoicesUpdated)
	assert.Equal(t, 1, res.Escalations)
	assert.Equal(t, 1, res.Assigned)
	assert.Equal(t, 1, res.DraftsCreated)
	assert.Equal(t, 0, res.SkippedExisting)
	assert.Equal(t, 0, res.Failures)

	var reloaded invoicedomain.Invoice
	require.NoError(t, f.db.Where("id = ?", inv.ID).First(&reloaded).Error)
	assert.Equal(t, aging.BucketDPD31To60, reloaded.AgingBucket)
	require.NotNil(t, reloaded.BucketEnteredAt)

	// Old assignment deactivated, never deleted.
	history, err := f.store.ListByInvoice(ctx, f.db, inv.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	var stale assignmentdomain.Assignment
	require.NoError(t, f.db.Where("id = ?", prior.ID).First(&stale).Error)
	assert.False(t, stale.IsActive)
	require.NotNil(t, stale.DeactivatedAt)

	active, err := f.store.GetActive(ctx, f.db, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, newWf.ID, active.WorkflowID)
	assert.Equal(t, aging.BucketDPD31To60, active.Bucket)

	drafts, err := f.drafts.ListByInvoice(ctx, f.db, inv.ID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, draftdomain.StatusPendingApproval, drafts[0].Status)
	assert.Equal(t, "Dear Jane Doe, invoice "+inv.Number+" for $500.00 is due.", drafts[0].Body)
	assert.NotContains(t, drafts[0].Subject, "{{")
}

func TestRunPassIsIdempotent(t *testing.T) {
	f := setupCollector(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	debtor := f.seedDebtor(t, orgID, "", "Acme Corp")
	inv := f.seedInvoice(t, orgID, debtor.ID, invoicedomain.InvoiceStatusOpen, 45, aging.BucketDPD1To30, 20)
	f.seedWorkflow(t, nil, aging.BucketDPD31To60, workflowdomain.Step{
		DayOffset: 0, Subject: "Overdue", Body: "Dear {{debtor_name}}",
	})

	first, err := f.collector.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.DraftsCreated)

	second, err := f.collector.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, second.InvoicesSeen)
	assert.Equal(t, 0, second.InvoicesUpdated)
	assert.Equal(t, 0, second.Assigned)
	assert.Equal(t, 0, second.DraftsCreated)
	assert.Equal(t, 1, second.SkippedExisting)

	count, err := f.store.CountActive(ctx, f.db, inv.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	drafts, err := f.drafts.ListByInvoice(ctx, f.db, inv.ID)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestRunPassIgnoresSettledInvoices(t *testing.T) {
	f := setupCollector(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	debtor := f.seedDebtor(t, orgID, "Jane Doe", "")
	f.seedInvoice(t, orgID, debtor.ID, invoicedomain.InvoiceStatusPaid, 90, aging.BucketDPD1To30, 60)
	f.seedInvoice(t, orgID, debtor.ID, invoicedomain.InvoiceStatusVoid, 90, "", 0)
	f.seedWorkflow(t, nil, aging.BucketDPD61To90, workflowdomain.Step{
		DayOffset: 0, Subject: "Overdue", Body: "Dear {{debtor_name}}",
	})

	res, err := f.collector.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, res.InvoicesSeen)
	assert.Equal(t, 0, res.DraftsCreated)
}

func TestRunPassDeactivatesStaleAssignmentOnResolutionMiss(t *testing.T) {
	f := setupCollector(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	debtor := f.seedDebtor(t, orgID, "Jane Doe", "")
	inv := f.seedInvoice(t, orgID, debtor.ID, invoicedomain.InvoiceStatusOpen, 45, aging.BucketDPD1To30, 20)
	oldWf := f.seedWorkflow(t, nil, aging.BucketDPD1To30, workflowdomain.Step{
		DayOffset: 0, Subject: "Reminder", Body: "Hi {{debtor_name}}",
	})
	// No workflow for dpd_31_60.

	_, err := f.store.Reassign(ctx, f.db, nil, assignmentdomain.NewAssignment{
		OrgID: orgID, InvoiceID: inv.ID, WorkflowID: oldWf.ID, Bucket: aging.BucketDPD1To30,
	}, f.clock.Now().AddDate(0, 0, -20))
	require.NoError(t, err)

	res, err := f.collector.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.InvoicesUpdated)
	assert.Equal(t, 0, res.Assigned)
	assert.Equal(t, 0, res.DraftsCreated)

	active, err := f.store.GetActive(ctx, f.db, inv.ID)
	require.NoError(t, err)
	assert.Nil(t, active)

	history, err := f.store.ListByInvoice(ctx, f.db, inv.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRunPassRespectsStepDayOffsets(t *testing.T) {
	f := setupCollector(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	debtor := f.seedDebtor(t, orgID, "Jane Doe", "")
	// Freshly entered dpd_1_30; only step requires 7 days in bucket.
	f.seedInvoice(t, orgID, debtor.ID, invoicedomain.InvoiceStatusOpen, 5, "", 0)
	f.seedWorkflow(t, nil, aging.BucketDPD1To30, workflowdomain.Step{
		DayOffset: 7, Subject: "Week overdue", Body: "Hi {{debtor_name}}",
	})

	res, err := f.collector.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.InvoicesUpdated)
	assert.Equal(t, 1, res.Assigned)
	assert.Equal(t, 0, res.DraftsCreated)

	// A week later the step unlocks.
	f.clock.Advance(7 * 24 * time.Hour)
	res, err = f.collector.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DraftsCreated)
}

func TestRunPassPicksLatestReachedStep(t *testing.T) {
	f := setupCollector(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	debtor := f.seedDebtor(t, orgID, "Jane Doe", "")
	inv := f.seedInvoice(t, orgID, debtor.ID, invoicedomain.InvoiceStatusOpen, 45, "", 0)
	f.seedWorkflow(t, nil, aging.BucketDPD31To60,
		workflowdomain.Step{DayOffset: 3, Subject: "First", Body: "First notice"},
		workflowdomain.Step{DayOffset: 5, Subject: "Second", Body: "Second notice"},
		workflowdomain.Step{DayOffset: 10, Subject: "Third", Body: "Third notice"},
	)

	// Two passes: the first assigns, the second (8 days in bucket) drafts.
	_, err := f.collector.RunPass(ctx)
	require.NoError(t, err)
	f.clock.Advance(8 * 24 * time.Hour)

	res, err := f.collector.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DraftsCreated)

	drafts, err := f.drafts.ListByInvoice(ctx, f.db, inv.ID)
	require.NoError(t, err)
	require.NotEmpty(t, drafts)
	assert.Equal(t, "Second notice", drafts[0].Body)
}

func TestRunPassPrefersOrgWorkflowOverDefault(t *testing.T) {
	f := setupCollector(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	debtor := f.seedDebtor(t, orgID, "Jane Doe", "")
	inv := f.seedInvoice(t, orgID, debtor.ID, invoicedomain.InvoiceStatusOpen, 45, "", 0)
	f.seedWorkflow(t, nil, aging.BucketDPD31To60, workflowdomain.Step{
		DayOffset: 0, Subject: "Default", Body: "Default body",
	})
	orgWf := f.seedWorkflow(t, &orgID, aging.BucketDPD31To60, workflowdomain.Step{
		DayOffset: 0, Subject: "Org", Body: "Org body",
	})

	res, err := f.collector.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Assigned)

	active, err := f.store.GetActive(ctx, f.db, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, orgWf.ID, active.WorkflowID)
}

func TestRunPassMissingDebtorFallsBackToGenericName(t *testing.T) {
	f := setupCollector(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	inv := f.seedInvoice(t, orgID, f.node.Generate(), invoicedomain.InvoiceStatusOpen, 45, "", 0)
	f.seedWorkflow(t, nil, aging.BucketDPD31To60, workflowdomain.Step{
		DayOffset: 0, Subject: "Overdue", Body: "Dear {{debtor_name}},",
	})

	res, err := f.collector.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.DraftsCreated)

	drafts, err := f.drafts.ListByInvoice(ctx, f.db, inv.ID)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Dear Valued Customer,", drafts[0].Body)
}

func TestRunPassAggregatesPerInvoiceFailures(t *testing.T) {
	f := setupCollector(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	debtor := f.seedDebtor(t, orgID, "Jane Doe", "")
	// Zero due date is unclassifiable and must not sink the healthy invoice.
	bad := &invoicedomain.Invoice{
		ID:       f.node.Generate(),
		OrgID:    orgID,
		DebtorID: debtor.ID,
		Number:   "INV-BAD",
		Amount:   1000,
		Currency: "USD",
		Status:   invoicedomain.InvoiceStatusOpen,
	}
	require.NoError(t, f.db.Create(bad).Error)
	good := f.seedInvoice(t, orgID, debtor.ID, invoicedomain.InvoiceStatusOpen, 45, "", 0)
	f.seedWorkflow(t, nil, aging.BucketDPD31To60, workflowdomain.Step{
		DayOffset: 0, Subject: "Overdue", Body: "Dear {{debtor_name}}",
	})

	res, err := f.collector.RunPass(ctx)
	require.Error(t, err)
	assert.Equal(t, 2, res.InvoicesSeen)
	assert.Equal(t, 1, res.Failures)
	assert.Equal(t, 1, res.DraftsCreated)
	require.Len(t, res.Errors, 1)

	drafts, err := f.drafts.ListByInvoice(ctx, f.db, good.ID)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
}

func TestRunPassHonorsMaxInvoicesPerRun(t *testing.T) {
	f := setupCollector(t)
	ctx := context.Background()
	orgID := f.node.Generate()

	cfg := config.DefaultCollectionsConfig()
	cfg.BatchSize = 2
	cfg.MaxInvoicesPerRun = 3
	f.collector.cfgHolder = config.NewStaticCollectionsConfigHolder(cfg)

	debtor := f.seedDebtor(t, orgID, "Jane Doe", "")
	for i := 0; i < 5; i++ {
		f.seedInvoice(t, orgID, debtor.ID, invoicedomain.InvoiceStatusOpen, 45, "", 0)
	}

	res, err := f.collector.RunPass(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.InvoicesSeen)
}
