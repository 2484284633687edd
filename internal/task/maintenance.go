package task

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/clientdesk/internal/model"
)

const (
	logEventMaintenanceCompleted = "maintenance_completed"
	logEventMaintenanceFailed    = "maintenance_failed"
)

// MaintenanceResult counts the rows one maintenance pass changed.
type MaintenanceResult struct {
	ExpiredGrants   int64
	OverdueInvoices int64
}

// MaintenanceJob revokes expired deliverable grants and flags unpaid invoices past their due date.
type MaintenanceJob struct {
	database *gorm.DB
	logger   *zap.Logger
	clock    func() time.Time
}

// NewMaintenanceJob builds a MaintenanceJob. A nil clock uses time.Now.
func NewMaintenanceJob(database *gorm.DB, logger *zap.Logger, clock func() time.Time) *MaintenanceJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	return &MaintenanceJob{
		database: database,
		logger:   logger,
		clock:    clock,
	}
}

// Run performs one maintenance pass.
func (job *MaintenanceJob) Run(ctx context.Context) (MaintenanceResult, error) {
	now := job.clock().UTC()
	result := MaintenanceResult{}

	expiredGrants := job.database.WithContext(ctx).
		Model(&model.DeliverableGrant{}).
		Where("revoked_at IS NULL AND expires_at IS NOT NULL AND expires_at <= ?", now).
		Update("revoked_at", now)
	if expiredGrants.Error != nil {
		return result, expiredGrants.Error
	}
	result.ExpiredGrants = expiredGrants.RowsAffected

	overdueInvoices := job.database.WithContext(ctx).
		Model(&model.Invoice{}).
		Where("status = ? AND due_date < ?", model.InvoiceStatusSent, model.StartOfDay(now)).
		Update("status", model.InvoiceStatusOverdue)
	if overdueInvoices.Error != nil {
		return result, overdueInvoices.Error
	}
	result.OverdueInvoices = overdueInvoices.RowsAffected

	return result, nil
}

// Runner adapts the job to a Scheduler, logging each pass.
func (job *MaintenanceJob) Runner() RunnerFunc {
	return func(ctx context.Context) {
		result, err := job.Run(ctx)
		if err != nil {
			job.logger.Warn(logEventMaintenanceFailed, zap.Error(err))
			return
		}
		if result.ExpiredGrants > 0 || result.OverdueInvoices > 0 {
			job.logger.Info(logEventMaintenanceCompleted,
				zap.Int64("expired_grants", result.ExpiredGrants),
				zap.Int64("overdue_invoices", result.OverdueInvoices))
		}
	}
}
