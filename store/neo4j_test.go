package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rax/types"
)

type fakeResult struct {
	neo4j.ResultWithContext
	err error
}

func (r *fakeResult) Consume(ctx context.Context) (neo4j.ResultSummary, error) {
	return nil, r.err
}

type fakeTx struct {
	neo4j.ExplicitTransaction

	runErr     error
	consumeErr error
	params     map[string]any

	runs, commits, closes int
}

func (tx *fakeTx) Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error) {
	tx.runs++
	tx.params = params
	if tx.runErr != nil {
		return nil, tx.runErr
	}
	return &fakeResult{err: tx.consumeErr}, nil
}

func (tx *fakeTx) Commit(ctx context.Context) error {
	tx.commits++
	return nil
}

func (tx *fakeTx) Close(ctx context.Context) error {
	tx.closes++
	return nil
}

func beginWith(tx *fakeTx, begins *int) func(context.Context) (neo4j.ExplicitTransaction, error) {
	return func(context.Context) (neo4j.ExplicitTransaction, error) {
		*begins++
		return tx, nil
	}
}

func TestInsertDocuments_CommitsOnce(t *testing.T) {
	tx := &fakeTx{}
	begins := 0
	chunks := testChunks(uuid.New())[:2]

	require.NoError(t, insertDocuments(context.Background(), beginWith(tx, &begins), chunks))

	assert.Equal(t, 1, begins)
	assert.Equal(t, 1, tx.runs)
	assert.Equal(t, 1, tx.commits)
	assert.Equal(t, 1, tx.closes)
	assert.Len(t, tx.params["documents"], 2)
}

func TestInsertDocuments_TransientErrorIsNotRetried(t *testing.T) {
	deadlock := &neo4j.Neo4jError{Code: "Neo.TransientError.Transaction.DeadlockDetected", Msg: "deadlock"}

	t.Run("run", func(t *testing.T) {
		tx := &fakeTx{runErr: deadlock}
		begins := 0
		err := insertDocuments(context.Background(), beginWith(tx, &begins), testChunks(uuid.New()))

		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrStore)
		var nerr *neo4j.Neo4jError
		assert.True(t, errors.As(err, &nerr))
		assert.Equal(t, 1, begins)
		assert.Equal(t, 1, tx.runs)
		assert.Zero(t, tx.commits)
		assert.Equal(t, 1, tx.closes, "transaction is closed, which rolls it back")
	})

	t.Run("consume", func(t *testing.T) {
		tx := &fakeTx{consumeErr: deadlock}
		begins := 0
		err := insertDocuments(context.Background(), beginWith(tx, &begins), testChunks(uuid.New()))

		assert.ErrorIs(t, err, types.ErrStore)
		assert.Equal(t, 1, begins)
		assert.Zero(t, tx.commits)
		assert.Equal(t, 1, tx.closes)
	})
}

func TestInsertDocuments_BeginFailure(t *testing.T) {
	err := insertDocuments(context.Background(), func(context.Context) (neo4j.ExplicitTransaction, error) {
		return nil, errors.New("connection refused")
	}, testChunks(uuid.New()))

	assert.ErrorIs(t, err, types.ErrStore)
	assert.Contains(t, err.Error(), "connection refused")
}
