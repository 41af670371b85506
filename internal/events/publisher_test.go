package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"order-matching-service/internal/models"
)

func TestNewActivityEvent(t *testing.T) {
	log := models.NewActivityLog(models.ActivityProductMatch).
		WithResource("ORD-1").
		WithDetails(models.JSONB{"productsMatched": 2}).
		WithError(errors.New("product p9 not found")).
		Build()

	event := NewActivityEvent(log)

	assert.Equal(t, "product_match", event.ActivityType)
	assert.Equal(t, "ORD-1", event.ResourceID)
	assert.False(t, event.Success)
	assert.Equal(t, "product p9 not found", event.ErrorMessage)
	assert.Equal(t, 2, event.Details["productsMatched"])
	assert.NotEmpty(t, event.EventID)
	assert.NotEmpty(t, event.OccurredAt)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.PublishActivity(context.Background(), models.NewActivityLog(models.ActivityOrderCreated).Build()))
	p.Close()
}
