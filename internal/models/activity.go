package models

import (
	"time"

	"github.com/google/uuid"
)

// ActivityType identifies what an activity log entry records
type ActivityType string

const (
	ActivityProductMatch   ActivityType = "product_match"
	ActivityOrdersImported ActivityType = "orders_imported"
	ActivityOrdersSynced   ActivityType = "orders_synced"
	ActivityOrderCreated   ActivityType = "order_created"
	ActivityOrderDeleted   ActivityType = "order_deleted"
	ActivityOrderStatus    ActivityType = "order_status_updated"
	ActivityBundleDeleted  ActivityType = "bundle_match_deleted"
)

// ActivityLog is a user-visible record of something the service did
type ActivityLog struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ActivityType ActivityType `gorm:"type:varchar(100);not null;index:idx_activity_logs_type" json:"activityType"`
	UserID       string       `gorm:"type:varchar(255)" json:"userId,omitempty"`
	ResourceID   *string      `gorm:"type:varchar(255)" json:"resourceId,omitempty"`

	Details JSONB `gorm:"type:jsonb;default:'{}'" json:"details,omitempty"`

	Success      bool   `gorm:"default:true" json:"success"`
	ErrorMessage string `gorm:"type:text" json:"errorMessage,omitempty"`

	ActivityDate time.Time `gorm:"index:idx_activity_logs_date" json:"activityDate"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName specifies the table name for ActivityLog
func (ActivityLog) TableName() string {
	return "activity_logs"
}

// ActivityLogBuilder helps construct activity log entries
type ActivityLogBuilder struct {
	log *ActivityLog
}

// NewActivityLog creates a new activity log builder
func NewActivityLog(activityType ActivityType) *ActivityLogBuilder {
	now := time.Now()
	return &ActivityLogBuilder{
		log: &ActivityLog{
			ID:           uuid.New(),
			ActivityType: activityType,
			Success:      true,
			ActivityDate: now,
			CreatedAt:    now,
		},
	}
}

// WithUser sets the acting user
func (b *ActivityLogBuilder) WithUser(userID string) *ActivityLogBuilder {
	b.log.UserID = userID
	return b
}

// WithResource sets the resource ID
func (b *ActivityLogBuilder) WithResource(resourceID string) *ActivityLogBuilder {
	b.log.ResourceID = &resourceID
	return b
}

// WithDetails sets the details payload
func (b *ActivityLogBuilder) WithDetails(details JSONB) *ActivityLogBuilder {
	b.log.Details = details
	return b
}

// WithError marks the entry failed. A nil error leaves it successful.
func (b *ActivityLogBuilder) WithError(err error) *ActivityLogBuilder {
	if err != nil {
		b.log.Success = false
		b.log.ErrorMessage = err.Error()
	}
	return b
}

// Build returns the constructed activity log
func (b *ActivityLogBuilder) Build() *ActivityLog {
	return b.log
}
