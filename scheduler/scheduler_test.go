package scheduler

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal-underwriter/domain"
)

type MockJobs struct {
	RefreshLimit int
	RefreshCalls int
	ForceError   bool
}

func (m *MockJobs) RefreshMarketData(ctx context.Context, limit int) (int, error) {
	m.RefreshCalls++
	m.RefreshLimit = limit
	if m.ForceError {
		return 0, errors.New("refresh error")
	}
	return 3, nil
}

func (m *MockJobs) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	return domain.DashboardStats{DealsAnalyzed: 4, PassedDeals: 1}, nil
}

func TestRegisterAll(t *testing.T) {
	s := NewScheduler(context.Background(), &MockJobs{}, Config{
		MarketRefreshCron: "0 0 2 * * *",
		StatsCron:         "0 0 * * * *",
	}, zerolog.Nop())

	require.NoError(t, s.RegisterAll())
	assert.Len(t, s.cron.Entries(), 2)
}

func TestRegisterAll_EmptyExpressionDisablesTask(t *testing.T) {
	s := NewScheduler(context.Background(), &MockJobs{}, Config{StatsCron: "0 0 * * * *"}, zerolog.Nop())

	require.NoError(t, s.RegisterAll())
	assert.Len(t, s.cron.Entries(), 1)
}

func TestRegisterAll_InvalidExpression(t *testing.T) {
	s := NewScheduler(context.Background(), &MockJobs{}, Config{MarketRefreshCron: "every night"}, zerolog.Nop())

	assert.Error(t, s.RegisterAll())
}

func TestRunMarketRefreshNow(t *testing.T) {
	jobs := &MockJobs{}
	var buf bytes.Buffer
	s := NewScheduler(context.Background(), jobs, Config{RefreshLimit: 25}, zerolog.New(&buf))

	s.RunMarketRefreshNow()

	assert.Equal(t, 1, jobs.RefreshCalls)
	assert.Equal(t, 25, jobs.RefreshLimit)
	assert.Contains(t, buf.String(), "market data refreshed")
}

func TestRunMarketRefreshNow_LogsFailure(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(context.Background(), &MockJobs{ForceError: true}, Config{}, zerolog.New(&buf))

	s.RunMarketRefreshNow()

	assert.Contains(t, buf.String(), "market refresh failed")
}

func TestRunStatsNow(t *testing.T) {
	var buf bytes.Buffer
	s := NewScheduler(context.Background(), &MockJobs{}, Config{}, zerolog.New(&buf))

	s.RunStatsNow()

	assert.Contains(t, buf.String(), `"deals_analyzed":4`)
}
