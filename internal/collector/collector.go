// Package collector runs the daily collections pass: recompute aging buckets,
// reconcile workflow assignments and stage outreach drafts for review.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	assignmentdomain "github.com/collectra/collectra/internal/assignment/domain"
	"github.com/collectra/collectra/internal/clock"
	"github.com/collectra/collectra/internal/config"
	debtordomain "github.com/collectra/collectra/internal/debtor/domain"
	draftdomain "github.com/collectra/collectra/internal/draft/domain"
	invoicedomain "github.com/collectra/collectra/internal/invoice/domain"
	obsmetrics "github.com/collectra/collectra/internal/observability/metrics"
	"github.com/collectra/collectra/internal/template"
	workflowdomain "github.com/collectra/collectra/internal/workflow/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidConfig = errors.New("collector: invalid configuration")

	// ErrRunInProgress means another replica holds the run lock.
	ErrRunInProgress = errors.New("collections_run_in_progress")
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	GenID       *snowflake.Node
	CfgHolder   *config.CollectionsConfigHolder
	Invoices    invoicedomain.Repository
	Debtors     debtordomain.Repository
	Resolver    workflowdomain.Resolver
	Assignments assignmentdomain.Store
	Drafts      draftdomain.Repository
	Locker      *RunLocker `optional:"true"`
}

type Collector struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	genID       *snowflake.Node
	cfgHolder   *config.CollectionsConfigHolder
	invoices    invoicedomain.Repository
	debtors     debtordomain.Repository
	resolver    workflowdomain.Resolver
	assignments assignmentdomain.Store
	drafts      draftdomain.Repository
	locker      *RunLocker
}

// Result summarizes one pass. The counters feed both the run endpoint
// response and the structured run-finished log line.
type Result struct {
	InvoicesSeen    int      `json:"invoicesSeen"`
	InvoicesUpdated int      `json:"invoicesUpdated"`
	Escalations     int      `json:"escalations"`
	Assigned        int      `json:"assigned"`
	DraftsCreated   int      `json:"draftsCreated"`
	SkippedExisting int      `json:"skippedExisting"`
	Failures        int      `json:"failures"`
	Errors          []string `json:"errors,omitempty"`
}

func New(p Params) (*Collector, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.GenID == nil || p.CfgHolder == nil ||
		p.Invoices == nil || p.Debtors == nil || p.Resolver == nil || p.Assignments == nil || p.Drafts == nil {
		return nil, ErrInvalidConfig
	}
	return &Collector{
		db:          p.DB,
		log:         p.Log.Named("collector").With(zap.String("component", "collector")),
		clock:       p.Clock,
		genID:       p.GenID,
		cfgHolder:   p.CfgHolder,
		invoices:    p.Invoices,
		debtors:     p.Debtors,
		resolver:    p.Resolver,
		assignments: p.Assignments,
		drafts:      p.Drafts,
		locker:      p.Locker,
	}, nil
}

// RunPass executes one full collections pass. Every invoice is classified
// against the same "now" so a pass straddling midnight stays consistent.
// Per-invoice failures are aggregated and do not abort the pass; the pass is
// idempotent, so a re-run after a partial failure converges.
func (c *Collector) RunPass(parent context.Context) (*Result, error) {
	cfg := c.cfgHolder.Get()
	passMetrics := obsmetrics.Collections()

	token, acquired, err := c.locker.TryLock(parent, cfg.RunLockTTL)
	if err != nil {
		passMetrics.IncPassError("lock")
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !acquired {
		return nil, ErrRunInProgress
	}
	defer func() {
		if releaseErr := c.locker.Release(parent, token); releaseErr != nil {
			c.log.Warn("failed to release run lock", zap.Error(releaseErr))
		}
	}()

	ctx, cancel := context.WithTimeout(parent, cfg.PassTimeout)
	defer cancel()

	start := c.clock.Now()
	now := start
	passMetrics.IncPassRun()
	c.log.Info("collections pass started",
		zap.Time("as_of", now),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("max_invoices", cfg.MaxInvoicesPerRun),
	)

	res := &Result{}
	var passErr error
	var afterID snowflake.ID

	for res.InvoicesSeen < cfg.MaxInvoicesPerRun {
		if ctx.Err() != nil {
			passErr = errors.Join(passErr, ctx.Err())
			passMetrics.IncPassError("timeout")
			break
		}

		limit := cfg.BatchSize
		if remaining := cfg.MaxInvoicesPerRun - res.InvoicesSeen; remaining < limit {
			limit = remaining
		}

		batch, err := c.invoices.ListEligibleAfter(ctx, c.db, afterID, limit)
		if err != nil {
			passErr = errors.Join(passErr, fmt.Errorf("list eligible invoices: %w", err))
			passMetrics.IncPassError("list")
			break
		}
		if len(batch) == 0 {
			break
		}

		debtorsByID, err := c.loadDebtors(ctx, batch)
		if err != nil {
			// Rendering falls back to the generic name; keep going.
			passErr = errors.Join(passErr, fmt.Errorf("load debtors: %w", err))
			passMetrics.IncPassError("debtor_lookup")
			debtorsByID = map[snowflake.ID]*debtordomain.Debtor{}
		}

		for _, inv := range batch {
			if ctx.Err() != nil {
				break
			}
			if err := c.processInvoice(ctx, inv, debtorsByID[inv.DebtorID], now, cfg, res); err != nil {
				res.Failures++
				res.Errors = append(res.Errors, fmt.Sprintf("invoice %s: %v", inv.ID, err))
				passErr = errors.Join(passErr, err)
				passMetrics.IncInvoiceFailure()
				c.log.Warn("invoice processing failed",
					zap.String("invoice_id", inv.ID.String()),
					zap.String("org_id", inv.OrgID.String()),
					zap.Error(err),
				)
			}
		}

		res.InvoicesSeen += len(batch)
		afterID = batch[len(batch)-1].ID
		if len(batch) < limit {
			break
		}
	}

	passMetrics.AddInvoicesSeen(res.InvoicesSeen)
	passMetrics.ObservePassDuration(time.Since(start))
	c.log.Info("collections pass finished",
		zap.Int("invoices_seen", res.InvoicesSeen),
		zap.Int("invoices_updated", res.InvoicesUpdated),
		zap.Int("escalations", res.Escalations),
		zap.Int("assigned", res.Assigned),
		zap.Int("drafts_created", res.DraftsCreated),
		zap.Int("skipped_existing", res.SkippedExisting),
		zap.Int("failures", res.Failures),
		zap.Duration("took", time.Since(start)),
	)

	return res, passErr
}

// RunForever runs a pass on the configured interval until ctx is canceled.
func (c *Collector) RunForever(ctx context.Context) {
	interval := c.cfgHolder.Get().RunInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.RunPass(ctx); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				c.log.Info("collections pass skipped, another run in progress")
			} else {
				c.log.Warn("collections pass failed", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Collector) loadDebtors(ctx context.Context, batch []*invoicedomain.Invoice) (map[snowflake.ID]*debtordomain.Debtor, error) {
	ids := make([]snowflake.ID, 0, len(batch))
	seen := make(map[snowflake.ID]struct{}, len(batch))
	for _, inv := range batch {
		if _, ok := seen[inv.DebtorID]; ok {
			continue
		}
		seen[inv.DebtorID] = struct{}{}
		ids = append(ids, inv.DebtorID)
	}
	return c.debtors.FindByIDs(ctx, c.db, ids)
}

func (c *Collector) processInvoice(
	ctx context.Context,
	inv *invoicedomain.Invoice,
	debtor *debtordomain.Debtor,
	now time.Time,
	cfg config.CollectionsConfig,
	res *Result,
) error {
	passMetrics := obsmetrics.Collections()

	transition, err := aging.DetectTransition(inv.AgingBucket, inv.DueAt, now)
	if err != nil {
		return fmt.Errorf("classify: %w", err)
	}

	bucketEnteredAt := now
	if !transition.Changed && inv.BucketEnteredAt != nil {
		bucketEnteredAt = *inv.BucketEnteredAt
	}

	if transition.Changed {
		if err := c.invoices.UpdateBucket(ctx, c.db, inv.ID, transition.New, now); err != nil {
			return fmt.Errorf("persist bucket: %w", err)
		}
		res.InvoicesUpdated++
		if transition.Escalation {
			res.Escalations++
		}
		passMetrics.IncBucketChange(transition.Escalation)
	}

	active, err := c.assignments.GetActive(ctx, c.db, inv.ID)
	if err != nil {
		return fmt.Errorf("load active assignment: %w", err)
	}

	def, err := c.resolver.Resolve(ctx, inv.OrgID, transition.New)
	if err != nil {
		return fmt.Errorf("resolve workflow: %w", err)
	}

	if def == nil {
		// No workflow covers the new bucket. Retire a stale assignment so it
		// does not keep driving outreach for a bucket the invoice left.
		if active != nil && active.Bucket != transition.New {
			if err := c.assignments.Deactivate(ctx, c.db, active, now); err != nil {
				if errors.Is(err, assignmentdomain.ErrConcurrentReassign) {
					return nil
				}
				return fmt.Errorf("deactivate stale assignment: %w", err)
			}
		}
		return nil
	}

	assignmentBucketEnteredAt := bucketEnteredAt
	if active == nil || active.WorkflowID != def.ID || active.Bucket != transition.New {
		created, err := c.assignments.Reassign(ctx, c.db, active, assignmentdomain.NewAssignment{
			OrgID:      inv.OrgID,
			InvoiceID:  inv.ID,
			WorkflowID: def.ID,
			Bucket:     transition.New,
		}, now)
		if err != nil {
			if errors.Is(err, assignmentdomain.ErrConcurrentReassign) {
				// Another pass got here first; its outcome stands.
				return nil
			}
			return fmt.Errorf("reassign workflow: %w", err)
		}
		res.Assigned++
		passMetrics.IncReassignment()
		assignmentBucketEnteredAt = created.AssignedAt
	} else {
		assignmentBucketEnteredAt = active.AssignedAt
		if bucketEnteredAt.Before(assignmentBucketEnteredAt) {
			assignmentBucketEnteredAt = bucketEnteredAt
		}
	}

	step := selectStep(def.Steps, daysSince(assignmentBucketEnteredAt, now))
	if step == nil {
		return nil
	}

	hasLive, err := c.drafts.HasLive(ctx, c.db, inv.ID)
	if err != nil {
		return fmt.Errorf("check live draft: %w", err)
	}
	if hasLive {
		res.SkippedExisting++
		passMetrics.IncDraftSkipped()
		return nil
	}

	fields := template.Fields(inv, debtor, aging.DaysPastDue(inv.DueAt, now), template.FieldOptions{
		FallbackDebtorName: cfg.FallbackDebtorName,
		PaymentLink: template.Render(cfg.PaymentLinkTemplate, map[string]string{
			"invoice_id":     inv.ID.String(),
			"invoice_number": inv.Number,
		}),
	})

	newDraft := &draftdomain.Draft{
		ID:         c.genID.Generate(),
		OrgID:      inv.OrgID,
		InvoiceID:  inv.ID,
		WorkflowID: def.ID,
		StepID:     step.ID,
		Channel:    step.Channel,
		Subject:    template.Render(step.Subject, fields),
		Body:       template.Render(step.Body, fields),
		Status:     draftdomain.StatusPendingApproval,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := c.drafts.Insert(ctx, c.db, newDraft); err != nil {
		if errors.Is(err, draftdomain.ErrLiveDraftExists) {
			res.SkippedExisting++
			passMetrics.IncDraftSkipped()
			return nil
		}
		return fmt.Errorf("create draft: %w", err)
	}
	res.DraftsCreated++
	passMetrics.IncDraftCreated()
	return nil
}

// selectStep picks the latest step whose day offset has been reached, so an
// invoice discovered mid-cadence gets the message matching its age rather
// than replaying the whole sequence.
func selectStep(steps []workflowdomain.Step, daysInBucket int) *workflowdomain.Step {
	var picked *workflowdomain.Step
	for i := range steps {
		step := &steps[i]
		if step.DayOffset > daysInBucket {
			continue
		}
		if picked == nil || step.DayOffset > picked.DayOffset ||
			(step.DayOffset == picked.DayOffset && step.StepOrder > picked.StepOrder) {
			picked = step
		}
	}
	return picked
}

func daysSince(entered, now time.Time) int {
	d := aging.DaysPastDue(entered, now)
	if d < 0 {
		return 0
	}
	return d
}
