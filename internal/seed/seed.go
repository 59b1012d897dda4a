// Package seed bootstraps the platform default workflows so a fresh install
// produces drafts without any per-org setup.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/collectra/collectra/internal/aging"
	workflowdomain "github.com/collectra/collectra/internal/workflow/domain"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type defaultStep struct {
	dayOffset int
	channel   workflowdomain.StepChannel
	subject   string
	body      string
}

type defaultWorkflow struct {
	name  string
	steps []defaultStep
}

// defaultWorkflows covers every past-due bucket. Bodies stay deliberately
// plain; orgs are expected to replace them with their own cadences.
var defaultWorkflows = map[aging.Bucket]defaultWorkflow{
	aging.BucketDPD1To30: {
		name: "Friendly Reminder",
		steps: []defaultStep{
			{0, workflowdomain.ChannelEmail,
				"Reminder: invoice {{invoice_number}} is past due",
				"Hi {{debtor_name}},\n\nThis is a friendly reminder that invoice {{invoice_number}} for {{amount}} was due on {{due_date}}. You can pay here: {{payment_link}}\n\nThank you!"},
			{14, workflowdomain.ChannelEmail,
				"Second reminder: invoice {{invoice_number}}",
				"Hi {{debtor_name}},\n\nInvoice {{invoice_number}} for {{amount}} is now {{days_past_due}} days past due. Please pay at your earliest convenience: {{payment_link}}"},
		},
	},
	aging.BucketDPD31To60: {
		name: "Past Due Follow-up",
		steps: []defaultStep{
			{0, workflowdomain.ChannelEmail,
				"Invoice {{invoice_number}} is over 30 days past due",
				"Dear {{debtor_name}},\n\nInvoice {{invoice_number}} for {{amount}} is now {{days_past_due}} days past due. Please arrange payment: {{payment_link}}"},
			{15, workflowdomain.ChannelSMS,
				"",
				"{{company_name}}: invoice {{invoice_number}} ({{amount}}) is {{days_past_due}} days past due. Pay: {{payment_link}}"},
		},
	},
	aging.BucketDPD61To90: {
		name: "Urgent Follow-up",
		steps: []defaultStep{
			{0, workflowdomain.ChannelEmail,
				"Urgent: invoice {{invoice_number}} requires attention",
				"Dear {{debtor_name}},\n\nDespite previous reminders, invoice {{invoice_number}} for {{amount}} remains unpaid {{days_past_due}} days past its due date. Please settle the balance promptly: {{payment_link}}"},
		},
	},
	aging.BucketDPD91To120: {
		name: "Escalated Notice",
		steps: []defaultStep{
			{0, workflowdomain.ChannelEmail,
				"Final notice: invoice {{invoice_number}}",
				"Dear {{debtor_name}},\n\nInvoice {{invoice_number}} for {{amount}} is seriously past due. Unless payment is received soon, this account may be referred for further action. Pay now: {{payment_link}}"},
		},
	},
	aging.BucketDPD121To150: {
		name: "Pre-collections Notice",
		steps: []defaultStep{
			{0, workflowdomain.ChannelEmail,
				"Account review: invoice {{invoice_number}}",
				"Dear {{debtor_name}},\n\nInvoice {{invoice_number}} for {{amount}} is {{days_past_due}} days past due and your account is under review. Please contact us or pay immediately: {{payment_link}}"},
		},
	},
	aging.BucketDPD150Plus: {
		name: "Collections Referral",
		steps: []defaultStep{
			{0, workflowdomain.ChannelEmail,
				"Account escalation: invoice {{invoice_number}}",
				"Dear {{debtor_name}},\n\nInvoice {{invoice_number}} for {{amount}} remains unpaid after repeated notices. Please pay immediately to avoid escalation: {{payment_link}}"},
		},
	},
}

// EnsureDefaultWorkflows inserts a platform default workflow (org_id IS NULL)
// for every past-due bucket that does not already have one.
func EnsureDefaultWorkflows(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, bucket := range aging.Buckets() {
			tpl, ok := defaultWorkflows[bucket]
			if !ok {
				continue
			}
			if err := ensureBucketDefaultTx(ctx, tx, node, bucket, tpl); err != nil {
				return fmt.Errorf("seed %s default workflow: %w", bucket, err)
			}
		}
		return nil
	})
}

func ensureBucketDefaultTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, bucket aging.Bucket, tpl defaultWorkflow) error {
	var count int64
	err := tx.WithContext(ctx).
		Model(&workflowdomain.Definition{}).
		Where("org_id IS NULL AND bucket = ?", bucket).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	def := &workflowdomain.Definition{
		ID:       node.Generate(),
		Key:      slug.Make(tpl.name + " " + string(bucket)),
		Name:     tpl.name,
		Bucket:   bucket,
		IsActive: true,
	}
	if err := tx.WithContext(ctx).Create(def).Error; err != nil {
		return err
	}

	for i, step := range tpl.steps {
		row := &workflowdomain.Step{
			ID:         node.Generate(),
			WorkflowID: def.ID,
			StepOrder:  i + 1,
			DayOffset:  step.dayOffset,
			Channel:    step.channel,
			Subject:    step.subject,
			Body:       step.body,
		}
		if err := tx.WithContext(ctx).Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}
