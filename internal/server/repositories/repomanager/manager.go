package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/casefile/internal/dbx"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/beneficiaries"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/forms"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/reference"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/submissions"
	"github.com/dmitrijs2005/casefile/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Reference(db dbx.DBTX) reference.Repository
	Forms(db dbx.DBTX) forms.Repository
	Beneficiaries(db dbx.DBTX) beneficiaries.Repository
	Submissions(db dbx.DBTX) submissions.Repository
}
