package errorlog

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"auragold-backend/models"

	"github.com/oklog/ulid/v2"
	"github.com/romana/rlog"
	"gorm.io/datatypes"
)

const (
	MaxErrors     = 200
	MaxActivities = 500
	DedupeWindow  = 2 * time.Second
)

// Diagnosis is what the AI collaborator suggests for an error.
type Diagnosis struct {
	Explanation string `json:"explanation"`
	Action      string `json:"action"`
	Path        string `json:"resolution_path"`
	CTA         string `json:"cta"`
}

const ActionRetryAPI = "RETRY_API"

type Diagnoser interface {
	DiagnoseError(ctx context.Context, message, source string) (Diagnosis, error)
}

// Sink persists the log so it survives restarts.
type Sink interface {
	SaveError(ctx context.Context, e models.AppError) error
	SaveActivity(ctx context.Context, a models.ActivityLog) error
	RecentErrors(ctx context.Context, limit int) ([]models.AppError, error)
	RecentActivities(ctx context.Context, limit int) ([]models.ActivityLog, error)
	ClearErrors(ctx context.Context) error
	ClearActivities(ctx context.Context) error
}

// Service is the central capture point for background failures and the
// activity feed. Both lists are kept newest first and capped.
type Service struct {
	sink Sink
	now  func() time.Time

	mu         sync.Mutex
	diagnoser  Diagnoser
	errors     []models.AppError
	activities []models.ActivityLog
	lastMsg    string
	lastAt     time.Time

	wg sync.WaitGroup
}

func New(sink Sink) *Service {
	return &Service{sink: sink, now: time.Now}
}

func (s *Service) SetDiagnoser(d Diagnoser) {
	s.mu.Lock()
	s.diagnoser = d
	s.mu.Unlock()
}

// Restore loads the most recent persisted entries.
func (s *Service) Restore(ctx context.Context) error {
	if s.sink == nil {
		return nil
	}
	errs, err := s.sink.RecentErrors(ctx, MaxErrors)
	if err != nil {
		return err
	}
	acts, err := s.sink.RecentActivities(ctx, MaxActivities)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.errors, s.activities = errs, acts
	s.mu.Unlock()
	return nil
}

// Capture records a background error. An identical message within the dedupe
// window is dropped and "" is returned. Non-LOW errors are diagnosed
// asynchronously.
func (s *Service) Capture(source, message string, severity models.ErrorSeverity) string {
	return s.CaptureWithRetry(source, message, severity, nil)
}

// CaptureWithRetry is Capture with an action the diagnosis may decide to run
// again.
func (s *Service) CaptureWithRetry(source, message string, severity models.ErrorSeverity, retry func(ctx context.Context) error) string {
	now := s.now()
	s.mu.Lock()
	if message == s.lastMsg && now.Sub(s.lastAt) < DedupeWindow {
		s.mu.Unlock()
		return ""
	}
	s.lastMsg, s.lastAt = message, now
	e := models.AppError{
		ID:        "ERR-" + ulid.Make().String(),
		Timestamp: now,
		Source:    source,
		Message:   message,
		Severity:  severity,
		Status:    models.ErrorNew,
	}
	s.errors = prepend(s.errors, e, MaxErrors)
	diagnoser := s.diagnoser
	s.mu.Unlock()

	rlog.Warnf("[%s] %s: %s", severity, source, message)
	s.persistError(e)

	if severity != models.SeverityLow {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.diagnose(e, diagnoser, retry)
		}()
	}
	return e.ID
}

func (s *Service) diagnose(e models.AppError, diagnoser Diagnoser, retry func(ctx context.Context) error) {
	if strings.Contains(e.Message, "403") {
		s.update(e.ID, func(x *models.AppError) {
			x.AIDiagnosis = "API Access Forbidden. Your API Key is likely invalid, expired, or doesn't have permissions."
			x.Status = models.ErrorUnresolvable
			x.ResolutionPath = "settings"
			x.ResolutionCTA = "Update API Key"
		})
		return
	}
	if diagnoser == nil {
		return
	}

	s.update(e.ID, func(x *models.AppError) { x.Status = models.ErrorAnalyzing })
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	d, err := diagnoser.DiagnoseError(ctx, e.Message, e.Source)
	if err != nil {
		s.update(e.ID, func(x *models.AppError) {
			x.Status = models.ErrorUnresolvable
			x.AIDiagnosis = "AI Resolution Engine Timeout."
		})
		return
	}
	s.update(e.ID, func(x *models.AppError) {
		x.AIDiagnosis = d.Explanation
		x.ResolutionPath = d.Path
		x.ResolutionCTA = d.CTA
		x.Status = models.ErrorFixing
	})

	fix, resolved := "Manual review required.", false
	if d.Action == ActionRetryAPI && retry != nil {
		if err := retry(ctx); err == nil {
			fix, resolved = "Automatic retry succeeded.", true
		}
	}
	s.update(e.ID, func(x *models.AppError) {
		x.AIFixApplied = fix
		if resolved {
			x.Status = models.ErrorResolved
		} else {
			x.Status = models.ErrorUnresolvable
		}
	})
}

func (s *Service) update(id string, fn func(*models.AppError)) {
	s.mu.Lock()
	var updated *models.AppError
	for i := range s.errors {
		if s.errors[i].ID == id {
			fn(&s.errors[i])
			cp := s.errors[i]
			updated = &cp
			break
		}
	}
	s.mu.Unlock()
	if updated != nil {
		s.persistError(*updated)
	}
}

// NewActivity builds an activity entry without recording it, for callers
// that persist it inside their own transaction. Hand it to Remember after
// the commit.
func (s *Service) NewActivity(action models.ActivityType, details string, metadata any) models.ActivityLog {
	a := models.ActivityLog{
		ID:         "ACT-" + ulid.Make().String(),
		Timestamp:  s.now(),
		ActionType: action,
		Details:    details,
	}
	if metadata != nil {
		if raw, err := json.Marshal(metadata); err == nil {
			a.Metadata = datatypes.JSON(raw)
		}
	}
	return a
}

// Remember adds already persisted activities to the in-memory feed.
func (s *Service) Remember(acts ...models.ActivityLog) {
	s.mu.Lock()
	for _, a := range acts {
		s.activities = prepend(s.activities, a, MaxActivities)
	}
	s.mu.Unlock()
}

// Activity records and persists an activity entry.
func (s *Service) Activity(action models.ActivityType, details string, metadata any) models.ActivityLog {
	a := s.NewActivity(action, details, metadata)
	s.Remember(a)
	if s.sink != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.sink.SaveActivity(ctx, a); err != nil {
			rlog.Error("persist activity failed:", err.Error())
		}
	}
	return a
}

func (s *Service) persistError(e models.AppError) {
	if s.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sink.SaveError(ctx, e); err != nil {
		rlog.Error("persist error log failed:", err.Error())
	}
}

func (s *Service) Errors() []models.AppError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AppError(nil), s.errors...)
}

func (s *Service) Activities() []models.ActivityLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ActivityLog(nil), s.activities...)
}

func (s *Service) ClearErrors(ctx context.Context) error {
	s.mu.Lock()
	s.errors = nil
	s.mu.Unlock()
	if s.sink == nil {
		return nil
	}
	return s.sink.ClearErrors(ctx)
}

func (s *Service) ClearActivities(ctx context.Context) error {
	s.mu.Lock()
	s.activities = nil
	s.mu.Unlock()
	if s.sink == nil {
		return nil
	}
	return s.sink.ClearActivities(ctx)
}

// Wait blocks until pending diagnoses finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func prepend[T any](list []T, v T, max int) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, v)
	out = append(out, list...)
	if len(out) > max {
		out = out[:max]
	}
	return out
}
