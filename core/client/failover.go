package client

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

type queryFunc func(ctx context.Context, log *zap.Logger, server string) (Result, error)

// Resolve queries servers one after the other in list order and returns
// the first successful result. If every server fails, the error is an
// *AllFailedError. Servers are never queried concurrently.
func (c *Client) Resolve(ctx context.Context, log *zap.Logger, servers []string) (
	Result, error) {
	return resolve(ctx, log, servers, c.Query)
}

func resolve(ctx context.Context, log *zap.Logger, servers []string, query queryFunc) (
	Result, error) {
	if len(servers) == 0 {
		return Result{}, ErrNoServers
	}
	errs := make([]*QueryError, 0, len(servers))
	for _, server := range servers {
		if ctx.Err() != nil {
			break
		}
		r, err := query(ctx, log, server)
		if err == nil {
			log.Debug("time server responded",
				zap.String("server", server),
				zap.Time("time", r.Time),
				zap.Duration("rtt", r.RoundTrip),
			)
			return r, nil
		}
		var qerr *QueryError
		if !errors.As(err, &qerr) {
			qerr = &QueryError{Server: server, Kind: KindUnreachable, Err: err}
		}
		errs = append(errs, qerr)
		log.Info("failed to query time server",
			zap.String("server", server),
			zap.Stringer("kind", qerr.Kind),
			zap.Error(qerr.Err),
		)
	}
	return Result{}, &AllFailedError{Errors: errs}
}
