package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/taskminder-api/internal/domain"
)

type userStore interface {
	ScanAll(ctx context.Context) ([]domain.User, error)
}

type todoStore interface {
	ListByUsername(ctx context.Context, username string) ([]domain.Todo, error)
}

type mailSender interface {
	SendEmail(to, subject, text, html string) error
}

// Sweeper periodically scans every account for overdue todos and sends one
// aggregate reminder email per affected account.
type Sweeper struct {
	users       userStore
	todos       todoStore
	mailer      mailSender
	interval    time.Duration
	mailTimeout time.Duration
	logger      *slog.Logger
	clock       func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type SweeperDeps struct {
	UserRepo    userStore
	TodoRepo    todoStore
	Mailer      mailSender
	Interval    time.Duration
	MailTimeout time.Duration
}

func NewSweeper(deps SweeperDeps) *Sweeper {
	return &Sweeper{
		users:       deps.UserRepo,
		todos:       deps.TodoRepo,
		mailer:      deps.Mailer,
		interval:    deps.Interval,
		mailTimeout: deps.MailTimeout,
		logger:      slog.Default(),
		clock:       time.Now,
	}
}

// RunOnce executes a single sweep. Every account is attempted even when
// earlier ones fail; per-account errors are collected, logged, and combined
// into the return value so the run loop can log them. The sweep itself never
// aborts partway.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	now := s.clock()

	users, err := s.users.ScanAll(ctx)
	if err != nil {
		s.logger.Error("sweep could not list users", "err", err)
		return err
	}

	var errs []error
	for _, u := range users {
		if err := s.remindUser(ctx, u.Username, now); err != nil {
			s.logger.Warn("reminder skipped", "username", u.Username, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", u.Username, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Sweeper) remindUser(ctx context.Context, username string, now time.Time) error {
	todos, err := s.todos.ListByUsername(ctx, username)
	if err != nil {
		return err
	}

	var overdue []domain.Todo
	for _, t := range todos {
		if t.Overdue(now) {
			overdue = append(overdue, t)
		}
	}
	if len(overdue) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("You have pending tasks:\n\n")
	for _, t := range overdue {
		fmt.Fprintf(&b, "- %s (due on %s)\n", t.Task, t.DueAt.Format(time.RFC1123))
	}
	b.WriteString("\nPlease complete them as soon as possible.")

	return s.sendWithTimeout(ctx, username, "Task Reminder", b.String())
}

// sendWithTimeout bounds a single mail dispatch so one slow SMTP
// conversation can't stall the rest of the sweep, and gives up early when
// the sweep itself is being shut down.
func (s *Sweeper) sendWithTimeout(ctx context.Context, to, subject, text string) error {
	done := make(chan error, 1)
	go func() {
		done <- s.mailer.SendEmail(to, subject, text, "")
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.mailTimeout):
		return fmt.Errorf("dispatch to %s timed out after %s: %w", to, s.mailTimeout, domain.ErrDeliveryFailed)
	}
}

// Start begins periodic sweeping in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop cancels the sweep loop and waits for it to finish.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("reminder sweep scheduled", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Warn("sweep finished with errors", "err", err)
			}
		}
	}
}
