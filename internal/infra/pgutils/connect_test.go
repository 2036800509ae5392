package pgutils

import (
	"testing"
	"time"

	"github.com/fastprodman/topup/internal/config"
	"github.com/fastprodman/topup/internal/infra/pgtestutil"
)

func TestOpenDB(t *testing.T) {
	t.Parallel()

	_, err := OpenDB(t.Context(), config.PostgresConfig{})
	if err == nil {
		t.Fatal("expected error for empty dsn")
	}

	db, err := OpenDB(t.Context(), config.PostgresConfig{
		DSN:             pgtestutil.BaseDSN(),
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxIdleTime: time.Second,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if got := db.Stats().MaxOpenConnections; got != 2 {
		t.Fatalf("max open conns: want 2, got %d", got)
	}
}
