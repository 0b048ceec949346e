package identity

import (
	"context"
	"errors"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/dkeye/roomrelay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Chain tries each verifier in order. A verifier that does not accept the
// credentials passes to the next one; any other failure stops the chain.
type Chain []core.IdentityVerifier

func (c Chain) Authenticate(ctx context.Context, creds domain.Credentials) (domain.Identity, error) {
	for _, v := range c {
		id, err := v.Authenticate(ctx, creds)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, core.ErrUnauthenticated) {
			return domain.Identity{}, err
		}
		log.Debug().Err(err).Str("module", "adapters.identity").Msg("credentials not accepted")
	}
	return domain.Identity{}, core.ErrUnauthenticated
}
