package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/casefile/internal/client/cache"
	"github.com/dmitrijs2005/casefile/internal/client/client"
	"github.com/dmitrijs2005/casefile/internal/client/config"
	"github.com/dmitrijs2005/casefile/internal/client/models"
	"github.com/dmitrijs2005/casefile/internal/client/services"
	"github.com/dmitrijs2005/casefile/internal/client/store"
	"github.com/dmitrijs2005/casefile/internal/filex"
	"github.com/dmitrijs2005/casefile/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const pingTimeout = 3 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger

	store     *store.Store
	cache     *cache.Cache
	apiClient client.Client
	online    *client.OnlineFlag

	authService      services.AuthService
	referenceService services.ReferenceService
	caseService      services.CaseService
	fillService      services.FillService
	reconciler       services.Reconciler

	reader *bufio.Reader
	out    io.Writer

	mu      sync.Mutex
	session *models.Session
	Mode    Mode
}

// NewApp opens the local store and cache under the configured data
// directory and wires the services.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if _, err := filex.EnsureDir("", filepath.Dir(c.DatabasePath)); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	ch, err := cache.New(c.CacheDir, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return newApp(c, logger, st, ch), nil
}

func newApp(c *config.Config, logger logging.Logger, st *store.Store, ch *cache.Cache) *App {
	online := &client.OnlineFlag{}
	apiClient := client.NewHTTPClient(c.ServerURL, c.RequestTimeout, client.WithReachability(online))

	reference := services.NewReferenceService(apiClient, ch, logger)
	a := &App{
		config:           c,
		logger:           logger,
		store:            st,
		cache:            ch,
		apiClient:        apiClient,
		online:           online,
		authService:      services.NewAuthService(apiClient, st, logger),
		referenceService: reference,
		caseService:      services.NewCaseService(apiClient, st, ch, logger),
		fillService:      services.NewFillService(st, reference, logger),
		reconciler:       services.NewReconciler(apiClient, st, ch, logger, c.UploadConcurrency),
		reader:           bufio.NewReader(os.Stdin),
		out:              os.Stdout,
	}

	a.reconciler.OnAnswersSynced(func(ev services.AnswersSynced) {
		a.logger.Info(context.Background(), "answers synced",
			"form_id", ev.FormID, "beneficiary", ev.BeneficiaryID, "questions", len(ev.QuestionIDs))
	})

	return a
}

func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) setMode(mode Mode) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Mode == mode {
		return false
	}
	a.Mode = mode
	a.logger.Info(context.Background(), "connectivity changed", "mode", string(mode))
	return true
}

func (a *App) setSession(s *models.Session) {
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
}

// owner returns the e-mail of the logged-in worker, or "" without a session.
func (a *App) owner() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == nil {
		return ""
	}
	return a.session.Email
}

func (a *App) isLoggedIn() bool {
	return a.owner() != ""
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := ""
	if a.session != nil {
		s = a.session.Email + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// handleError reports a failed command. An unauthorized answer from the
// server ends the session.
func (a *App) handleError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, client.ErrUnauthorized) {
		a.forceLogout(ctx)
		a.printf("Session expired, please log in again.\n")
		return
	}
	a.printf("Error: %s\n", err)
}

func (a *App) forceLogout(ctx context.Context) {
	a.logger.Warn(ctx, "server rejected the session, logging out")
	if err := a.authService.Logout(ctx); err != nil {
		a.logger.Error(ctx, "logout failed", "error", err)
	}
	a.setSession(nil)
}

// Run restores a stored session, starts the background watchers and blocks
// in the REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.printf("Welcome to CaseFile CLI (type 'help' for commands)\n")

	s, err := a.authService.RestoreSession(ctx)
	switch {
	case err == nil:
		a.setSession(s)
		a.printf("Restored session of %s\n", s.Email)
	case errors.Is(err, services.ErrSessionExpired):
		a.printf("Stored session expired, please log in.\n")
	case !errors.Is(err, services.ErrNoSession):
		a.logger.Error(ctx, "restore session", "error", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()
	go func() {
		defer wg.Done()
		a.StartFormsRefresher(ctx, a.config.FormsRefreshInterval)
	}()

	runREPL(ctx, a, a.getStatus, a.reader)

	cancel()
	wg.Wait()
}

// checkOnline pings the server once and updates the reachability flag. On
// the way back online pending work of the current worker is pushed.
func (a *App) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := a.authService.Ping(pctx)
	cancel()

	online := err == nil
	a.online.Set(online)

	mode := ModeOffline
	if online {
		mode = ModeOnline
	}
	if !a.setMode(mode) || !online {
		return
	}

	owner := a.owner()
	if owner == "" {
		return
	}
	if err := a.reconciler.SyncUnsyncedData(ctx, owner); err != nil {
		a.logger.Warn(ctx, "background sync failed", "error", err)
		if errors.Is(err, client.ErrUnauthorized) {
			a.forceLogout(ctx)
		}
	}
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	a.checkOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) refreshForms(ctx context.Context) {
	if !a.online.Reachable() || !a.isLoggedIn() {
		return
	}
	if err := a.reconciler.DownloadUpdatedForms(ctx); err != nil {
		a.logger.Warn(ctx, "forms refresh failed", "error", err)
		if errors.Is(err, client.ErrUnauthorized) {
			a.forceLogout(ctx)
		}
	}
}

// StartFormsRefresher periodically refreshes the form catalogue while the
// worker is logged in and the server is reachable.
func (a *App) StartFormsRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.refreshForms(ctx)
		case <-ctx.Done():
			return
		}
	}
}
