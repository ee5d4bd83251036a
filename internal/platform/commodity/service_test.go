package commodity_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvestline/backend/internal/infra/memory"
	"github.com/harvestline/backend/internal/platform/commodity"
)

func validInput() commodity.CreateInput {
	return commodity.CreateInput{
		Name:           "Arabica green beans",
		AmountRequired: decimal.NewFromInt(50000),
		MinInvestment:  decimal.NewFromInt(100),
		APY:            decimal.NewFromInt(14),
		DurationDays:   120,
	}
}

func TestService_Create(t *testing.T) {
	svc := commodity.NewService(memory.New().Commodities(), nil)

	c, err := svc.Create(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, commodity.StatusFunding, c.Status)
	assert.True(t, c.CurrentAmount.IsZero())

	got, err := svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, got.Name)
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*commodity.CreateInput)
	}{
		{"blank name", func(in *commodity.CreateInput) { in.Name = "  " }},
		{"zero amount", func(in *commodity.CreateInput) { in.AmountRequired = decimal.Zero }},
		{"sub-cent amount", func(in *commodity.CreateInput) { in.AmountRequired = decimal.RequireFromString("10.001") }},
		{"negative minimum", func(in *commodity.CreateInput) { in.MinInvestment = decimal.NewFromInt(-1) }},
		{"minimum above target", func(in *commodity.CreateInput) { in.MinInvestment = decimal.NewFromInt(60000) }},
		{"negative apy", func(in *commodity.CreateInput) { in.APY = decimal.NewFromInt(-2) }},
		{"oversized apy", func(in *commodity.CreateInput) { in.APY = decimal.New(1, 30000000) }},
		{"oversized amount", func(in *commodity.CreateInput) { in.AmountRequired = decimal.New(1, 30000000) }},
		{"zero duration", func(in *commodity.CreateInput) { in.DurationDays = 0 }},
	}

	svc := commodity.NewService(memory.New().Commodities(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.modify(&in)
			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, commodity.ErrInvalidCommodity)
		})
	}
}

func TestService_Transition(t *testing.T) {
	ctx := context.Background()
	svc := commodity.NewService(memory.New().Commodities(), nil)
	c, err := svc.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Transition(ctx, c.ID, commodity.StatusArrived)
	assert.ErrorIs(t, err, commodity.ErrInvalidTransition)

	for _, next := range []commodity.Status{commodity.StatusFunded, commodity.StatusInTransit, commodity.StatusArrived, commodity.StatusReleased} {
		c, err = svc.Transition(ctx, c.ID, next)
		require.NoError(t, err)
		assert.Equal(t, next, c.Status)
	}

	_, err = svc.Transition(ctx, c.ID, commodity.StatusSettled)
	assert.ErrorIs(t, err, commodity.ErrInvalidTransition)

	_, err = svc.Transition(ctx, c.ID, "LOST_AT_SEA")
	assert.ErrorIs(t, err, commodity.ErrInvalidStatus)

	_, err = svc.Transition(ctx, uuid.New(), commodity.StatusFunded)
	assert.ErrorIs(t, err, commodity.ErrCommodityNotFound)
}

func TestCommodity_Subscribe(t *testing.T) {
	c := &commodity.Commodity{
		Status:         commodity.StatusFunding,
		AmountRequired: decimal.NewFromInt(1000),
		CurrentAmount:  decimal.NewFromInt(700),
		MinInvestment:  decimal.NewFromInt(50),
	}

	_, _, err := c.Subscribe(decimal.NewFromInt(49))
	assert.ErrorIs(t, err, commodity.ErrBelowMinimum)

	_, _, err = c.Subscribe(decimal.RequireFromString("300.01"))
	assert.ErrorIs(t, err, commodity.ErrExceedsCap)

	next, status, err := c.Subscribe(decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, next.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, commodity.StatusFunding, status)

	next, status, err = c.Subscribe(decimal.NewFromInt(300))
	require.NoError(t, err)
	assert.True(t, next.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, commodity.StatusFunded, status)

	c.Status = commodity.StatusCancelled
	_, _, err = c.Subscribe(decimal.NewFromInt(100))
	assert.ErrorIs(t, err, commodity.ErrNotFunding)
}
