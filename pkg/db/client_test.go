package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type txProbe struct {
	ID   int
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&txProbe{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func countByName(t *testing.T, db *gorm.DB, name string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&txProbe{}).Where("name = ?", name).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return count
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	ctx := context.Background()

	committed := "committed-" + uuid.NewString()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&txProbe{Name: committed}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}
	if got := countByName(t, db, committed); got != 1 {
		t.Fatalf("expected 1 committed record, got %d", got)
	}

	rolled := "rolled-" + uuid.NewString()
	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&txProbe{Name: rolled}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if got := countByName(t, db, rolled); got != 0 {
		t.Fatalf("expected rollback to drop the record, got %d", got)
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	name := "panicked-" + uuid.NewString()

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&txProbe{Name: name}).Error; err != nil {
				return err
			}
			panic("mid-transaction failure")
		})
	}()

	if got := countByName(t, db, name); got != 0 {
		t.Fatalf("expected panic rollback to drop the record, got %d", got)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil error", nil, "uniq_points_transactions_open_award", false},
		{
			"postgres phrasing",
			fmt.Errorf(`ERROR: duplicate key value violates unique constraint "uniq_points_transactions_open_award"`),
			"",
			true,
		},
		{
			"sqlite phrasing",
			fmt.Errorf("UNIQUE constraint failed: points_transactions.source_message_id"),
			"",
			true,
		},
		{
			"named constraint match",
			fmt.Errorf("insert blocked by uniq_accounts_user_tenant"),
			"uniq_accounts_user_tenant",
			true,
		},
		{"unrelated error", errors.New("connection refused"), "uniq_accounts_user_tenant", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
				t.Fatalf("IsUniqueViolation(%v, %q) = %v, want %v", tc.err, tc.constraint, got, tc.want)
			}
		})
	}
}
