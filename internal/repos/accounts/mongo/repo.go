package accounts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/topup/internal/infra/mongoutils"
	"github.com/fastprodman/topup/internal/repos/accounts"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ accounts.Accounts = (*accountsRepo)(nil)

type accountDoc struct {
	ID           string    `bson:"_id"`
	PasswordHash string    `bson:"password_hash"`
	Role         string    `bson:"role"`
	Balance      int64     `bson:"balance"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d accountDoc) toAccount() accounts.Account {
	return accounts.Account{
		ID:           d.ID,
		BalanceMinor: d.Balance,
		Role:         accounts.Role(d.Role),
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

type accountsRepo struct{ coll *mongo.Collection }

func New(db *mongo.Database) *accountsRepo {
	return &accountsRepo{coll: db.Collection(mongoutils.AccountsCollection)}
}

func (r *accountsRepo) FindAccount(ctx context.Context, id string) (accounts.Account, error) {
	var doc accountDoc

	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return accounts.Account{}, accounts.ErrAccountNotFound
		}

		return accounts.Account{}, fmt.Errorf("find account: %w", err)
	}

	return doc.toAccount(), nil
}

// IncrementBalance relies on $inc, which mongo applies atomically per document.
func (r *accountsRepo) IncrementBalance(ctx context.Context, id string, delta int64) (int64, error) {
	var doc accountDoc

	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"balance": delta}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, accounts.ErrAccountNotFound
		}

		return 0, fmt.Errorf("increment balance: %w", err)
	}

	return doc.Balance, nil
}

func (r *accountsRepo) Create(ctx context.Context, na accounts.NewAccount) (accounts.Account, error) {
	role := na.Role
	if role == "" {
		role = accounts.RoleUser
	}

	doc := accountDoc{
		ID:           na.ID,
		PasswordHash: na.PasswordHash,
		Role:         string(role),
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}

	_, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return accounts.Account{}, accounts.ErrAccountExists
		}

		return accounts.Account{}, fmt.Errorf("insert account: %w", err)
	}

	return doc.toAccount(), nil
}

func (r *accountsRepo) GetCredentials(ctx context.Context, id string) (accounts.Credentials, error) {
	var doc accountDoc

	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return accounts.Credentials{}, accounts.ErrAccountNotFound
		}

		return accounts.Credentials{}, fmt.Errorf("get credentials: %w", err)
	}

	return accounts.Credentials{
		AccountID:    doc.ID,
		PasswordHash: doc.PasswordHash,
		Role:         accounts.Role(doc.Role),
	}, nil
}
