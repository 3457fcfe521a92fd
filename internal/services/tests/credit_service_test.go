package services_test

import (
	"context"
	"sync"
	"testing"

	"secondbrain_go_backend/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebitSucceedsWithSufficientBalance(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 3)
	svc := services.NewCreditService(db)

	ok, err := svc.Debit(context.Background(), user.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	balance, err := svc.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)
}

func TestDebitAtExactBoundary(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1)
	svc := services.NewCreditService(db)

	ok, err := svc.Debit(context.Background(), user.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	balance, err := svc.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	// Balance is now zero; the next debit must refuse without mutating.
	ok, err = svc.Debit(context.Background(), user.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	balance, err = svc.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestDebitInsufficientBalanceRefusesWholeAmount(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 2)
	svc := services.NewCreditService(db)

	// No partial debit: 2 < 5 means the balance stays untouched.
	ok, err := svc.Debit(context.Background(), user.ID, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	balance, err := svc.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, balance)
}

func TestDebitUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewCreditService(db)

	ok, err := svc.Debit(context.Background(), uuid.New(), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDebitRejectsNegativeAmount(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 3)
	svc := services.NewCreditService(db)

	_, err := svc.Debit(context.Background(), user.ID, -1)
	assert.Error(t, err)
}

func TestConcurrentDebitsNeverOverspend(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 5)
	svc := services.NewCreditService(db)

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Debit(context.Background(), user.ID, 1)
			if err == nil && ok {
				results <- true
			}
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for range results {
		succeeded++
	}
	assert.Equal(t, 5, succeeded)

	balance, err := svc.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}

func TestCreditIncrementsBalance(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, 1)
	svc := services.NewCreditService(db)

	require.NoError(t, svc.Credit(context.Background(), user.ID, 10))

	balance, err := svc.GetBalance(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 11, balance)
}

func TestCreditUnknownUserErrors(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewCreditService(db)

	assert.Error(t, svc.Credit(context.Background(), uuid.New(), 10))
}

func TestGetBalanceUnknownUserIsZero(t *testing.T) {
	db := newTestDB(t)
	svc := services.NewCreditService(db)

	balance, err := svc.GetBalance(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
}
