package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/casefile/internal/client/services"
)

// getSimpleText and getPassword are indirections swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login asks for credentials, opens a session and walks the worker through
// the two-factor check and, on first login, the mandatory password change.
// Forms and beneficiaries are downloaded once the session is verified.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}

	s, err := a.authService.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.setSession(s)
	a.printf("Logged in as %s\n", s.Email)

	if err := a.Verify(ctx, nil); err != nil {
		return err
	}

	if s.FirstLogin {
		a.printf("First login: please choose a new password.\n")
		if err := a.Reset(ctx); err != nil {
			return err
		}
	}

	return a.Download(ctx)
}

// Verify submits the two-factor code, read from args or prompted.
func (a *App) Verify(ctx context.Context, args []string) error {
	code := ""
	if len(args) > 0 {
		code = args[0]
	} else {
		var err error
		code, err = getSimpleText(a.reader, "Enter the code sent to your email", a.out)
		if err != nil {
			return err
		}
	}

	if err := a.authService.Verify2FA(ctx, code); err != nil {
		if errors.Is(err, services.ErrVerificationFailed) {
			a.printf("Wrong code, use 'verify <code>' or 'resend'.\n")
			return nil
		}
		return err
	}
	a.printf("Verified\n")
	return nil
}

func (a *App) Resend(ctx context.Context) error {
	if err := a.authService.Resend2FA(ctx); err != nil {
		return err
	}
	a.printf("A new code was sent\n")
	return nil
}

func (a *App) Reset(ctx context.Context) error {
	password, err := getPassword("New password", a.out)
	if err != nil {
		return err
	}
	confirmation, err := getPassword("Repeat password", a.out)
	if err != nil {
		return err
	}
	if err := a.authService.ResetPassword(ctx, password, confirmation); err != nil {
		return err
	}
	a.printf("Password changed\n")
	return nil
}

// Logout forgets the session. Unsynced local work stays on the device.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.setSession(nil)
	a.printf("Logged out\n")
	return nil
}

func (a *App) Download(ctx context.Context) error {
	if err := a.reconciler.DownloadUpdatedForms(ctx); err != nil {
		return fmt.Errorf("download forms: %w", err)
	}
	if err := a.reconciler.DownloadUpdatedBeneficiaries(ctx, a.owner()); err != nil {
		return fmt.Errorf("download beneficiaries: %w", err)
	}
	a.printf("Forms and beneficiaries are up to date\n")
	return nil
}

func (a *App) Sync(ctx context.Context) error {
	if err := a.reconciler.SyncUnsyncedData(ctx, a.owner()); err != nil {
		return err
	}
	a.printf("Sync complete\n")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	a.printf("server: %s %s\n", a.config.ServerURL, a.getStatus())
	owner := a.owner()
	if owner == "" {
		a.printf("not logged in\n")
		return nil
	}
	pending, err := a.reconciler.NeedsSync(ctx, owner)
	if err != nil {
		return err
	}
	if pending {
		a.printf("local changes are waiting for sync\n")
	} else {
		a.printf("everything is synced\n")
	}
	return nil
}
