// Package repomanager wires repository constructors to a database handle and
// runs schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/basketlog/auth-service/internal/dbx"
	"github.com/basketlog/auth-service/internal/server/repositories/refreshtokens"
	"github.com/basketlog/auth-service/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
