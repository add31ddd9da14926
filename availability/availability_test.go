package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeSource struct {
	mu     sync.Mutex
	slots  map[string][]string
	failOn map[string]error // keyed by window start date
	calls  []Window
}

func (f *fakeSource) FreeSlots(ctx context.Context, calendarID string, start, end time.Time, timezone string) (map[string][]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Window{Start: start, End: end})
	f.mu.Unlock()

	if err, ok := f.failOn[start.Format(DateLayout)]; ok {
		return nil, err
	}

	out := map[string][]string{}
	for _, d := range DateRange(start, end) {
		if s, ok := f.slots[d]; ok {
			out[d] = s
		}
	}
	return out, nil
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s, time.UTC)
	require.NoError(t, err)
	return d
}

func fastOpts() Options {
	return Options{Limiter: rate.NewLimiter(rate.Inf, 1)}
}

func TestChunk(t *testing.T) {
	windows := Chunk(day(t, "2025-01-01"), day(t, "2025-03-01"), 30)
	require.Len(t, windows, 2)
	assert.Equal(t, "2025-01-01", windows[0].Start.Format(DateLayout))
	assert.Equal(t, "2025-01-30", windows[0].End.Format(DateLayout))
	assert.Equal(t, "2025-01-31", windows[1].Start.Format(DateLayout))
	assert.Equal(t, "2025-03-01", windows[1].End.Format(DateLayout))
}

func TestChunk_SingleDayAndReversed(t *testing.T) {
	windows := Chunk(day(t, "2025-05-10"), day(t, "2025-05-10"), 0)
	require.Len(t, windows, 1)
	assert.True(t, windows[0].Start.Equal(windows[0].End))

	assert.Empty(t, Chunk(day(t, "2025-05-10"), day(t, "2025-05-01"), 30))
}

func TestWindowUntil(t *testing.T) {
	w := Window{Start: day(t, "2025-01-01"), End: day(t, "2025-01-30")}
	until := w.Until()
	assert.Equal(t, "2025-01-30", until.Format(DateLayout))
	assert.Equal(t, 23, until.Hour())
}

func TestDateRange(t *testing.T) {
	dates := DateRange(day(t, "2024-02-27"), day(t, "2024-03-01"))
	assert.Equal(t, []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}, dates)
}

func TestValidateRange(t *testing.T) {
	assert.ErrorIs(t, ValidateRange(day(t, "2025-02-01"), day(t, "2025-01-01")), ErrInvalidRange)
	assert.ErrorIs(t, ValidateRange(day(t, "2025-01-01"), day(t, "2026-12-31")), ErrRangeTooLarge)
	assert.NoError(t, ValidateRange(day(t, "2025-01-01"), day(t, "2025-12-31")))

	// exactly MaxRangeDays dates is allowed, one more is not
	start := day(t, "2025-01-01")
	assert.NoError(t, ValidateRange(start, start.AddDate(0, 0, MaxRangeDays-1)))
	assert.ErrorIs(t, ValidateRange(start, start.AddDate(0, 0, MaxRangeDays)), ErrRangeTooLarge)
}

func TestValidateRange_HugeRangeDoesNotAllocate(t *testing.T) {
	start, end := day(t, "0001-01-01"), day(t, "9999-12-31")

	var err error
	allocs := testing.AllocsPerRun(10, func() {
		err = ValidateRange(start, end)
	})
	assert.ErrorIs(t, err, ErrRangeTooLarge)
	assert.Zero(t, allocs)
}

func TestDayCount(t *testing.T) {
	assert.Equal(t, 1, DayCount(day(t, "2025-06-01"), day(t, "2025-06-01")))
	assert.Equal(t, 4, DayCount(day(t, "2024-02-27"), day(t, "2024-03-01")))
	assert.Equal(t, 366, DayCount(day(t, "2024-01-01"), day(t, "2024-12-31")))
	assert.Equal(t, 0, DayCount(day(t, "2025-06-02"), day(t, "2025-06-01")))
	assert.Equal(t, 3652059, DayCount(day(t, "0001-01-01"), day(t, "9999-12-31")))

	// a DST change inside the range does not lose a day
	syd := time.FixedZone("AEDT", 11*3600)
	assert.Equal(t, 3, DayCount(time.Date(2025, 4, 5, 0, 0, 0, 0, syd), time.Date(2025, 4, 7, 0, 0, 0, 0, time.FixedZone("AEST", 10*3600))))
}

func TestReconcile(t *testing.T) {
	dates := []string{"2025-06-03", "2025-06-01", "2025-06-02", "2025-06-01"}
	slots := map[string][]string{
		"2025-06-01": {"2025-06-01T10:00:00Z"},
		"2025-06-02": {},
		"2025-07-01": {"2025-07-01T10:00:00Z"},
	}

	available, missing := Reconcile(dates, slots)
	assert.Equal(t, []string{"2025-06-01"}, available)
	assert.Equal(t, []string{"2025-06-02", "2025-06-03"}, missing)
}

func TestFetch_MergesWindowsSequentially(t *testing.T) {
	src := &fakeSource{slots: map[string][]string{
		"2025-01-05": {"2025-01-05T15:00:00Z", "2025-01-05T15:00:00Z"},
		"2025-02-10": {"2025-02-10T15:00:00Z"},
	}}

	report, err := Fetch(context.Background(), src, "cal-1", day(t, "2025-01-01"), day(t, "2025-02-15"), fastOpts())
	require.NoError(t, err)

	assert.Len(t, src.calls, 2)
	assert.Equal(t, []string{"2025-01-05", "2025-02-10"}, report.Available)
	assert.Len(t, report.Missing, 46-2)
	assert.Empty(t, report.Unknown)
	assert.Equal(t, []string{"2025-01-05T15:00:00Z"}, report.Slots["2025-01-05"])
	require.Len(t, report.Chunks, 2)
	assert.Equal(t, 1, report.Chunks[0].DateKeys)
	assert.Equal(t, 2, report.Chunks[0].SlotCount)
}

func TestFetch_FailedWindowIsUnknown(t *testing.T) {
	src := &fakeSource{
		slots:  map[string][]string{"2025-01-02": {"x"}},
		failOn: map[string]error{"2025-01-31": errors.New("boom")},
	}

	report, err := Fetch(context.Background(), src, "cal-1", day(t, "2025-01-01"), day(t, "2025-02-09"), fastOpts())
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-01-02"}, report.Available)
	assert.Len(t, report.Missing, 29)
	assert.Len(t, report.Unknown, 10)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "boom")
	assert.Equal(t, "boom", report.Chunks[1].Error)

	total := len(report.Available) + len(report.Missing) + len(report.Unknown)
	assert.Equal(t, 40, total)
}

func TestFetch_RejectsBadRange(t *testing.T) {
	_, err := Fetch(context.Background(), &fakeSource{}, "cal", day(t, "2025-02-01"), day(t, "2025-01-01"), fastOpts())
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestFetch_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{}
	_, err := Fetch(ctx, src, "cal", day(t, "2025-01-01"), day(t, "2025-03-01"), Options{
		Limiter: rate.NewLimiter(rate.Every(time.Hour), 0),
	})
	assert.Error(t, err)
	assert.Empty(t, src.calls)
}
