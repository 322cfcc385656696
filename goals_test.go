package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// recordingTx records statements in order. Query fails with queryErr so the
// transaction stops at the first read.
type recordingTx struct {
	statements []string
	queryErr   error
}

func (r *recordingTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.statements = append(r.statements, sql)
	return pgconn.CommandTag{}, nil
}

func (r *recordingTx) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	r.statements = append(r.statements, sql)
	return nil, r.queryErr
}

// TestCreateGoalTx_LocksBeforeDeactivating checks that concurrent creates for
// one user are serialized before either touches the active goal.
func TestCreateGoalTx_LocksBeforeDeactivating(t *testing.T) {
	stop := errors.New("stop")
	tx := &recordingTx{queryErr: stop}

	_, err := createGoalTx(context.Background(), tx, 4, createGoalRequest{GoalType: goalCut})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want the query error", err)
	}

	want := []string{"pg_advisory_xact_lock", "SET is_active = false", "INSERT INTO athlete_body_goals"}
	if len(tx.statements) != len(want) {
		t.Fatalf("ran %d statements, want %d: %v", len(tx.statements), len(want), tx.statements)
	}
	for i, w := range want {
		if !strings.Contains(tx.statements[i], w) {
			t.Errorf("statement %d = %q, want it to contain %q", i, tx.statements[i], w)
		}
	}
}
