package errorlog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"auragold-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newService() (*Service, *clock) {
	c := &clock{t: time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)}
	s := New(nil)
	s.now = c.now
	return s, c
}

type fakeDiagnoser struct {
	d   Diagnosis
	err error
}

func (f fakeDiagnoser) DiagnoseError(ctx context.Context, message, source string) (Diagnosis, error) {
	return f.d, f.err
}

func TestCaptureDedupesWithinWindow(t *testing.T) {
	s, c := newService()

	assert.NotEmpty(t, s.Capture("Gold Rate", "feed down", models.SeverityLow))
	c.t = c.t.Add(time.Second)
	assert.Empty(t, s.Capture("Gold Rate", "feed down", models.SeverityLow))
	c.t = c.t.Add(1500 * time.Millisecond)
	assert.NotEmpty(t, s.Capture("Gold Rate", "feed down", models.SeverityLow))
	assert.NotEmpty(t, s.Capture("Gold Rate", "other", models.SeverityLow))

	errs := s.Errors()
	require.Len(t, errs, 3)
	assert.Equal(t, "other", errs[0].Message)
}

func TestCaptureCapsRetention(t *testing.T) {
	s, _ := newService()
	for i := 0; i < MaxErrors+20; i++ {
		s.Capture("test", fmt.Sprintf("error %d", i), models.SeverityLow)
	}
	for i := 0; i < MaxActivities+5; i++ {
		s.Activity(models.ActivityStatusUpdate, "tick", nil)
	}
	assert.Len(t, s.Errors(), MaxErrors)
	assert.Len(t, s.Activities(), MaxActivities)
	assert.Equal(t, fmt.Sprintf("error %d", MaxErrors+19), s.Errors()[0].Message)
}

func TestForbiddenIsUnresolvable(t *testing.T) {
	s, _ := newService()
	s.SetDiagnoser(fakeDiagnoser{err: errors.New("should not be called")})

	s.Capture("WhatsApp", "request failed with status 403", models.SeverityCritical)
	s.Wait()

	e := s.Errors()[0]
	assert.Equal(t, models.ErrorUnresolvable, e.Status)
	assert.Equal(t, "settings", e.ResolutionPath)
	assert.Equal(t, "Update API Key", e.ResolutionCTA)
}

func TestDiagnosisRetrySucceeds(t *testing.T) {
	s, _ := newService()
	s.SetDiagnoser(fakeDiagnoser{d: Diagnosis{Explanation: "transient", Action: ActionRetryAPI, Path: "none"}})

	retried := false
	s.CaptureWithRetry("Gold Rate", "timeout", models.SeverityMedium, func(ctx context.Context) error {
		retried = true
		return nil
	})
	s.Wait()

	e := s.Errors()[0]
	assert.True(t, retried)
	assert.Equal(t, models.ErrorResolved, e.Status)
	assert.Equal(t, "transient", e.AIDiagnosis)
	assert.Equal(t, "Automatic retry succeeded.", e.AIFixApplied)
}

func TestDiagnoserFailure(t *testing.T) {
	s, _ := newService()
	s.SetDiagnoser(fakeDiagnoser{err: errors.New("no key")})

	s.Capture("Gemini", "boom", models.SeverityMedium)
	s.Wait()

	e := s.Errors()[0]
	assert.Equal(t, models.ErrorUnresolvable, e.Status)
	assert.Equal(t, "AI Resolution Engine Timeout.", e.AIDiagnosis)
}

func TestLowSeverityIsNotDiagnosed(t *testing.T) {
	s, _ := newService()
	s.SetDiagnoser(fakeDiagnoser{d: Diagnosis{Action: ActionRetryAPI}})

	s.Capture("Gold Rate", "stale cache used", models.SeverityLow)
	s.Wait()
	assert.Equal(t, models.ErrorNew, s.Errors()[0].Status)
}

func TestClear(t *testing.T) {
	s, _ := newService()
	s.Capture("x", "y", models.SeverityLow)
	s.Activity(models.ActivityOrderCreated, "created", map[string]string{"order_id": "o1"})
	require.NoError(t, s.ClearErrors(context.Background()))
	require.NoError(t, s.ClearActivities(context.Background()))
	assert.Empty(t, s.Errors())
	assert.Empty(t, s.Activities())
}
