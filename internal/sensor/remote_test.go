package sensor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonehunt/zonehunt-server/internal/geo"
)

func TestKindFromCode(t *testing.T) {
	assert.Equal(t, KindPermissionDenied, KindFromCode(1))
	assert.Equal(t, KindPositionUnavailable, KindFromCode(2))
	assert.Equal(t, KindTimeout, KindFromCode(3))
	assert.Equal(t, KindMalformed, KindFromCode(0))
	assert.Equal(t, KindMalformed, KindFromCode(42))
}

func TestRemoteSource_GetSampleBlocksUntilReport(t *testing.T) {
	src := NewRemoteSource()

	go func() {
		time.Sleep(10 * time.Millisecond)
		src.ReportSample(geo.Position{Lat: 42, Lng: 23})
	}()

	p, err := src.GetSample(WatchOptions{Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, 42.0, p.Lat)

	// Subsequent calls return the cached position immediately.
	p, err = src.GetSample(WatchOptions{Timeout: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 23.0, p.Lng)
}

func TestRemoteSource_GetSampleTimesOut(t *testing.T) {
	src := NewRemoteSource()

	_, err := src.GetSample(WatchOptions{Timeout: 10 * time.Millisecond})
	require.Error(t, err)
	assert.Equal(t, KindTimeout, KindOf(err))
}

func TestRemoteSource_GetSampleSeesReportedError(t *testing.T) {
	src := NewRemoteSource()

	go func() {
		time.Sleep(10 * time.Millisecond)
		src.ReportError(1, "user said no")
	}()

	_, err := src.GetSample(WatchOptions{Timeout: time.Second})
	require.Error(t, err)
	assert.Equal(t, KindPermissionDenied, KindOf(err))
}

func TestRemoteSource_WatchDeliversReports(t *testing.T) {
	src := NewRemoteSource()

	var samples []geo.Position
	var errs []error
	h := src.Watch(
		func(p geo.Position) { samples = append(samples, p) },
		func(err error) { errs = append(errs, err) },
		WatchOptions{},
	)

	src.ReportSample(geo.Position{Lat: 1, Lng: 2})
	src.ReportError(2, "lost signal")

	require.Len(t, samples, 1)
	require.Len(t, errs, 1)
	assert.Equal(t, KindPositionUnavailable, KindOf(errs[0]))

	src.Cancel(h)
	src.ReportSample(geo.Position{Lat: 3, Lng: 4})
	assert.Len(t, samples, 1)
}

func TestRemoteSource_WatchReplaysLastPosition(t *testing.T) {
	src := NewRemoteSource()
	src.ReportSample(geo.Position{Lat: 1, Lng: 2})

	var got *geo.Position
	src.Watch(func(p geo.Position) { got = &p }, func(error) {}, WatchOptions{})
	require.NotNil(t, got)
	assert.Equal(t, 1.0, got.Lat)
}
