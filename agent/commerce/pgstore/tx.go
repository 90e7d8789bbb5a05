package pgstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// inTx runs fn in a transaction and retries the whole transaction once when
// it failed for a transient reason. fn must be safe to run twice.
func (s *Store) inTx(ctx context.Context, name string, fn func(ctx context.Context, tx bun.Tx) error) error {
	err := s.db.RunInTx(ctx, nil, fn)
	if err == nil || !transient(err) || ctx.Err() != nil {
		return err
	}
	log.Warn().Err(err).Str("tx", name).Msg("retrying transaction after transient failure")
	return s.db.RunInTx(ctx, nil, fn)
}

// transient reports connection losses, serialization failures and deadlocks.
func transient(err error) bool {
	if err == nil {
		return false
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		code := pgErr.Field('C')
		return strings.HasPrefix(code, "08") || code == "40001" || code == "40P01"
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
