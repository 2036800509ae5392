package deposits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/topup/internal/apperrors"
	"github.com/fastprodman/topup/internal/infra/mongoutils"
	"github.com/fastprodman/topup/internal/repos/deposits"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ deposits.Deposits = (*depositsRepo)(nil)

type depositDoc struct {
	ID         string     `bson:"_id"`
	AccountID  string     `bson:"account_id"`
	Amount     int64      `bson:"amount"`
	ContactRef string     `bson:"contact_ref"`
	Status     string     `bson:"status"`
	CreatedAt  time.Time  `bson:"created_at"`
	SettledAt  *time.Time `bson:"settled_at,omitempty"`
}

func (d depositDoc) toDeposit() deposits.Deposit {
	out := deposits.Deposit{
		ID:          d.ID,
		AccountID:   d.AccountID,
		AmountMinor: d.Amount,
		ContactRef:  d.ContactRef,
		Status:      deposits.Status(d.Status),
		CreatedAt:   d.CreatedAt.UTC(),
	}

	if d.SettledAt != nil {
		t := d.SettledAt.UTC()
		out.SettledAt = &t
	}

	return out
}

type depositsRepo struct{ coll *mongo.Collection }

func New(db *mongo.Database) *depositsRepo {
	return &depositsRepo{coll: db.Collection(mongoutils.DepositsCollection)}
}

// mongo stores millisecond precision; truncate so returned values match reads.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (r *depositsRepo) Create(ctx context.Context, nd deposits.NewDeposit) (deposits.Deposit, error) {
	err := nd.Validate()
	if err != nil {
		return deposits.Deposit{}, err
	}

	doc := depositDoc{
		ID:         uuid.NewString(),
		AccountID:  nd.AccountID,
		Amount:     nd.AmountMinor,
		ContactRef: nd.ContactRef,
		Status:     string(deposits.StatusPending),
		CreatedAt:  now(),
	}

	_, err = r.coll.InsertOne(ctx, doc)
	if err != nil {
		return deposits.Deposit{}, fmt.Errorf("insert deposit: %w", err)
	}

	return doc.toDeposit(), nil
}

func (r *depositsRepo) Get(ctx context.Context, id string) (deposits.Deposit, error) {
	var doc depositDoc

	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return deposits.Deposit{}, deposits.ErrDepositNotFound
		}

		return deposits.Deposit{}, fmt.Errorf("get deposit: %w", err)
	}

	return doc.toDeposit(), nil
}

// TransitionStatus uses the status in the filter as the compare half of the
// compare-and-swap; single-document updates are atomic in mongo.
func (r *depositsRepo) TransitionStatus(ctx context.Context, id string, from, to deposits.Status) (deposits.Deposit, error) {
	if !deposits.ValidTransition(from, to) {
		return deposits.Deposit{}, fmt.Errorf("%w: transition %s -> %s", apperrors.ErrValidation, from, to)
	}

	var doc depositDoc

	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to), "settled_at": now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return doc.toDeposit(), nil
	}

	if !errors.Is(err, mongo.ErrNoDocuments) {
		return deposits.Deposit{}, fmt.Errorf("transition status: %w", err)
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return deposits.Deposit{}, fmt.Errorf("check exists: %w", err)
	}

	if n == 0 {
		return deposits.Deposit{}, deposits.ErrDepositNotFound
	}

	return deposits.Deposit{}, deposits.ErrStatusConflict
}

func (r *depositsRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]deposits.Deposit, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := r.coll.Find(ctx, bson.M{"account_id": accountID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find deposits: %w", err)
	}
	//nolint:errcheck
	defer cursor.Close(ctx)

	var docs []depositDoc

	err = cursor.All(ctx, &docs)
	if err != nil {
		return nil, fmt.Errorf("decode deposits: %w", err)
	}

	out := make([]deposits.Deposit, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDeposit())
	}

	return out, nil
}
