package services

import (
	"context"

	"github.com/dmitrijs2005/casefile/internal/logging"
)

// CodeNotifier delivers two-factor codes to users.
type CodeNotifier interface {
	SendCode(ctx context.Context, email, code string) error
}

// LogNotifier writes codes to the server log. It stands in for a mail or
// SMS gateway in development setups.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(logger logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendCode(ctx context.Context, email, code string) error {
	n.logger.Info(ctx, "two-factor code issued", "email", email, "code", code)
	return nil
}
