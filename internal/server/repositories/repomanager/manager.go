package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/timeline/internal/dbx"
	"github.com/dmitrijs2005/timeline/internal/server/repositories/events"
	"github.com/dmitrijs2005/timeline/internal/server/repositories/media"
	"github.com/dmitrijs2005/timeline/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/timeline/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to either the pool or an
// open transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Events(db dbx.DBTX) events.Repository
	Media(db dbx.DBTX) media.Repository
}
