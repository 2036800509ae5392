package api

import (
	"context"

	"github.com/fastprodman/topup/internal/auth"
	"github.com/fastprodman/topup/internal/queue"
	"github.com/fastprodman/topup/internal/repos/accounts"
	"github.com/fastprodman/topup/internal/repos/deposits"
	"github.com/fastprodman/topup/internal/services/lifecycle"
	"github.com/fastprodman/topup/internal/services/status"
)

// Lifecycle is the deposit engine as seen by the HTTP layer.
type Lifecycle interface {
	Submit(ctx context.Context, accountID string, amountMinor int64, contactRef string) (deposits.Deposit, error)
	Settle(ctx context.Context, depositID string, decision lifecycle.Decision) (deposits.Deposit, error)
	Balance(ctx context.Context, accountID string) (int64, error)
	History(ctx context.Context, accountID string, limit, offset int) ([]deposits.Deposit, error)
}

type StatusReader interface {
	PollStatus(ctx context.Context, depositID string) (status.Snapshot, error)
}

type Authenticator interface {
	TokenParser
	Register(ctx context.Context, username, password string, role accounts.Role) (accounts.Account, error)
	VerifyCredentials(ctx context.Context, username, password string) (auth.Principal, error)
	IssueToken(p auth.Principal) (string, error)
}

// SettlementPublisher hands settlement requests to the async settler.
type SettlementPublisher interface {
	PublishSettlement(ctx context.Context, msg queue.SettlementMessage) error
}

// HandlerProvider exposes the deposit services as HTTP handlers.
type HandlerProvider struct {
	engine    Lifecycle
	status    StatusReader
	auth      Authenticator
	publisher SettlementPublisher
}

// NewHandler returns a new Handler provider. publisher may be nil, in which case
// async settlement is unavailable.
func NewHandler(engine Lifecycle, st StatusReader, au Authenticator, publisher SettlementPublisher) *HandlerProvider {
	return &HandlerProvider{
		engine:    engine,
		status:    st,
		auth:      au,
		publisher: publisher,
	}
}
