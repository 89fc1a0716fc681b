package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"planner/internal/calendar"
	"planner/internal/domain"
)

type MockPreferences struct{ mock.Mock }

func (m *MockPreferences) GetByOwner(ctx context.Context, ownerID int64) (*domain.WorkingPreferences, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkingPreferences), args.Error(1)
}

type MockItems struct{ mock.Mock }

func (m *MockItems) ListInRange(ctx context.Context, ownerID int64, from, to time.Time) ([]domain.ScheduleItem, error) {
	args := m.Called(ctx, ownerID, from, to)
	return args.Get(0).([]domain.ScheduleItem), args.Error(1)
}

func (m *MockItems) ListIDsByKind(ctx context.Context, ownerID int64, kind domain.ScheduleItemKind) ([]int64, error) {
	args := m.Called(ctx, ownerID, kind)
	return args.Get(0).([]int64), args.Error(1)
}

type MockConfigurations struct{ mock.Mock }

func (m *MockConfigurations) ListByOwner(ctx context.Context, ownerID int64) ([]domain.SchedulingConfiguration, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]domain.SchedulingConfiguration), args.Error(1)
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) BusyIntervals(ctx context.Context, t calendar.Target, from, to time.Time) ([]domain.BusyInterval, error) {
	args := m.Called(ctx, t, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BusyInterval), args.Error(1)
}

func utc(h, m int) time.Time {
	return time.Date(2026, 1, 12, h, m, 0, 0, time.UTC)
}

type fixture struct {
	prefs   *MockPreferences
	items   *MockItems
	configs *MockConfigurations
	gateway *MockGateway
	service *Service
}

func newFixture() *fixture {
	f := &fixture{
		prefs:   new(MockPreferences),
		items:   new(MockItems),
		configs: new(MockConfigurations),
		gateway: new(MockGateway),
	}
	f.service = NewService(f.prefs, f.items, f.configs, f.gateway)
	f.prefs.On("GetByOwner", mock.Anything, int64(7)).Return(nil, gorm.ErrRecordNotFound)
	f.items.On("ListIDsByKind", mock.Anything, int64(7), domain.ScheduleItemTask).Return([]int64{1, 2}, nil)
	return f
}

func TestService_CollectsFixedEvents(t *testing.T) {
	f := newFixture()
	f.items.On("ListInRange", mock.Anything, int64(7), utc(9, 0), utc(12, 0)).Return([]domain.ScheduleItem{
		{ID: 5, Kind: domain.ScheduleItemEvent, Title: "Dentist", StartTime: utc(11, 0), EndTime: utc(11, 30), Blocking: true},
		{ID: 6, Kind: domain.ScheduleItemEvent, Title: "Optional", StartTime: utc(9, 0), EndTime: utc(12, 0), Blocking: false},
		{ID: 1, Kind: domain.ScheduleItemTask, Title: "Write", StartTime: utc(9, 0), EndTime: utc(10, 0), Blocking: true},
	}, nil)
	f.configs.On("ListByOwner", mock.Anything, int64(7)).Return([]domain.SchedulingConfiguration{
		{ID: 1, OwnerID: 7, CalendarProvider: domain.CalendarProviderGoogle, CalendarID: "primary"},
		{ID: 2, OwnerID: 7, CalendarProvider: domain.CalendarProviderGoogle, CalendarID: "primary"},
		{ID: 3, OwnerID: 7, CalendarProvider: domain.CalendarProviderNone},
	}, nil)
	f.gateway.On("BusyIntervals", mock.Anything, mock.MatchedBy(func(t calendar.Target) bool {
		return t.Provider == domain.CalendarProviderGoogle && t.CalendarID == "primary"
	}), utc(9, 0), utc(12, 0)).Return([]domain.BusyInterval{
		{Start: utc(9, 30), End: utc(10, 0)},
		{Start: utc(10, 0), End: utc(11, 0), Transparency: domain.TransparencyTransparent},
	}, nil).Once()

	res, err := f.service.Validate(context.Background(), 7, Request{Blocks: []Block{
		block("a", 1, "2026-01-12T09:00:00Z", "2026-01-12T10:00:00Z"),
		block("b", 2, "2026-01-12T10:00:00Z", "2026-01-12T12:00:00Z"),
	}})
	require.NoError(t, err)

	assert.False(t, res.Valid)
	assert.Equal(t, 2, res.FixedEvents)
	assert.Equal(t, []string{"a:FIXED_EVENT_CONFLICT", "b:FIXED_EVENT_CONFLICT"}, codes(res.Errors))
	assert.Equal(t, "google-0", res.Errors[0].EventID)
	assert.Equal(t, "item-5", res.Errors[1].EventID)
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.False(t, res.CalendarDegraded)
	f.gateway.AssertNumberOfCalls(t, "BusyIntervals", 1)
}

func TestService_CalendarFailureDegrades(t *testing.T) {
	f := newFixture()
	f.items.On("ListInRange", mock.Anything, int64(7), mock.Anything, mock.Anything).Return([]domain.ScheduleItem{}, nil)
	f.configs.On("ListByOwner", mock.Anything, int64(7)).Return([]domain.SchedulingConfiguration{
		{ID: 1, OwnerID: 7, CalendarProvider: domain.CalendarProviderICS, CalendarID: "work"},
	}, nil)
	f.gateway.On("BusyIntervals", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("feed down"))

	res, err := f.service.Validate(context.Background(), 7, Request{
		Blocks:     []Block{block("a", 1, "2026-01-12T21:30:00Z", "2026-01-12T22:30:00Z")},
		Confidence: "high",
	})
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, res.CalendarDegraded)
	assert.Equal(t, []string{"a:AFTER_WINDOW_END"}, codes(res.Warnings))
	assert.Equal(t, ConfidenceMedium, res.Confidence)
}

func TestService_NothingParseableSkipsLookups(t *testing.T) {
	f := newFixture()

	res, err := f.service.Validate(context.Background(), 7, Request{Blocks: []Block{block("a", 1, "x", "y")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a:INVALID_TIME"}, codes(res.Errors))
	f.items.AssertNotCalled(t, "ListInRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.configs.AssertNotCalled(t, "ListByOwner", mock.Anything, mock.Anything)
}

func TestService_RejectsMalformedRequests(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.service.Validate(ctx, 7, Request{})
	assert.ErrorIs(t, err, ErrNoBlocks)

	_, err = f.service.Validate(ctx, 7, Request{Blocks: make([]Block, MaxBlocks+1)})
	assert.ErrorIs(t, err, ErrTooManyBlocks)

	_, err = f.service.Validate(ctx, 7, Request{Blocks: []Block{block("a", 1, "x", "y")}, Confidence: "sure"})
	assert.ErrorIs(t, err, ErrUnknownConfidence)
}
