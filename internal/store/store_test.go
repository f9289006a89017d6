package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/marketdeals/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDealFilterWhere(t *testing.T) {
	tests := []struct {
		tab      domain.DealTab
		where    string
		statuses []string
	}{
		{domain.TabNew, "seller_id = $1 AND status = ANY($2)", []string{"new"}},
		{domain.TabIncoming, "seller_id = $1 AND status = ANY($2)", statusList(domain.ActiveStatuses)},
		{domain.TabOutgoing, "buyer_id = $1 AND status = ANY($2)", statusList(domain.ActiveStatuses)},
		{domain.TabActive, "(buyer_id = $1 OR seller_id = $1) AND status = ANY($2)", statusList(domain.ActiveStatuses)},
		{domain.TabComplete, "(buyer_id = $1 OR seller_id = $1) AND status = ANY($2)", []string{"complete", "complete-outside"}},
		{domain.TabCanceled, "(buyer_id = $1 OR seller_id = $1) AND status = ANY($2)", []string{"canceled-by-buyer", "canceled-by-seller"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.tab), func(t *testing.T) {
			where, args := DealFilter{UserID: 7, Tab: tt.tab}.where()
			assert.Equal(t, tt.where, where)
			require.Len(t, args, 2)
			assert.Equal(t, int64(7), args[0])
			assert.Equal(t, tt.statuses, args[1])
		})
	}

	where, args := DealFilter{UserID: 7, Tab: domain.TabAll}.where()
	assert.Equal(t, "(buyer_id = $1 OR seller_id = $1)", where)
	assert.Len(t, args, 1)
}

// newTestStore connects to TEST_DB_SOURCE and applies the schema. Tests that
// need it are skipped when the variable is unset.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DB_SOURCE")
	if dsn == "" {
		t.Skip("TEST_DB_SOURCE not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.Migrate(ctx))
	return s
}

func createUser(t *testing.T, s *Store) *domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), "user-"+uuid.NewString()[:8])
	require.NoError(t, err)
	return u
}

func createOffer(t *testing.T, s *Store, userID int64, price int64, quantity *int64) *domain.Offer {
	t.Helper()
	o := domain.NewOffer(userID, "offer "+uuid.NewString(), price)
	if quantity != nil {
		o.Measure = domain.MeasurePiece
		o.Quantity = quantity
	}
	require.NoError(t, s.CreateOffer(context.Background(), o))
	return o
}

func qty(n int64) *int64 { return &n }

func TestOfferRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seller := createUser(t, s)

	o := createOffer(t, s, seller.ID, 150, qty(4))
	got, err := s.GetOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Title, got.Title)
	assert.Equal(t, int64(4), *got.Quantity)
	assert.Equal(t, domain.OfferAvailable, got.Status)

	dup := domain.NewOffer(seller.ID, o.Title, 10)
	assert.ErrorIs(t, s.CreateOffer(ctx, dup), ErrDuplicateTitle)

	_, err = s.GetOffer(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrOfferNotFound)
}

func TestReservationCheckConstraint(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seller := createUser(t, s)
	o := createOffer(t, s, seller.ID, 10, qty(2))

	o.QuantityReserved = 3
	err := SaveOfferStock(ctx, s.Db, o)
	assert.Error(t, err)

	// A sold-out offer cannot hold reservations either.
	o.Quantity = qty(0)
	o.QuantityReserved = 1
	assert.Error(t, SaveOfferStock(ctx, s.Db, o))
}

func TestNegativeDealAmountRejected(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seller := createUser(t, s)
	buyer := createUser(t, s)
	o := createOffer(t, s, seller.ID, 100, nil)

	d, err := domain.NewDeal(o, buyer.ID, 1, 100, domain.DealInner, "")
	require.NoError(t, err)
	d.AmountCost = -1
	assert.Error(t, InsertDeal(ctx, s.Db, d))
}

func TestLockUserBumpsVersion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s)

	version := func() int64 {
		var v int64
		require.NoError(t, s.Db.QueryRow(ctx, "SELECT balance_version FROM users WHERE id = $1", u.ID).Scan(&v))
		return v
	}
	before := version()
	require.NoError(t, LockUser(ctx, s.Db, u.ID))
	assert.Equal(t, before+1, version())

	assert.ErrorIs(t, LockUser(ctx, s.Db, -1), domain.ErrUserNotFound)
}

func TestSoldOutOfferAddsNothingToBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seller := createUser(t, s)
	o := createOffer(t, s, seller.ID, 100, qty(3))

	bal, err := s.Balance(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), bal.Total)

	// Still available but with no stock left.
	o.Quantity = qty(0)
	require.NoError(t, SaveOfferStock(ctx, s.Db, o))
	bal, err = s.Balance(ctx, seller.ID)
	require.NoError(t, err)
	assert.Zero(t, bal.Total)
}

func TestDealsAndTabs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seller := createUser(t, s)
	buyer := createUser(t, s)
	o := createOffer(t, s, seller.ID, 100, nil)

	d, err := domain.NewDeal(o, buyer.ID, 1, 100, domain.DealInner, "")
	require.NoError(t, err)
	require.NoError(t, InsertDeal(ctx, s.Db, d))

	found, err := FindNewDeal(ctx, s.Db, buyer.ID, o.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, d.ID, found.ID)

	n, err := s.CountDeals(ctx, DealFilter{UserID: seller.ID, Tab: domain.TabNew})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.CountDeals(ctx, DealFilter{UserID: buyer.ID, Tab: domain.TabNew})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	deals, err := s.ListDeals(ctx, DealFilter{UserID: buyer.ID, Tab: domain.TabOutgoing, Limit: 10})
	require.NoError(t, err)
	require.Len(t, deals, 1)

	d.Status = domain.DealCanceledByBuyer
	require.NoError(t, UpdateDeal(ctx, s.Db, d))
	found, err = FindNewDeal(ctx, s.Db, buyer.ID, o.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	n, err = s.CountDealsForOffer(ctx, o.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestBalanceAndLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seller := createUser(t, s)
	buyer := createUser(t, s)
	createOffer(t, s, buyer.ID, 40, qty(10))
	o := createOffer(t, s, seller.ID, 100, nil)

	bal, err := s.Balance(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), bal.Total)

	d, err := domain.NewDeal(o, buyer.ID, 1, 100, domain.DealInner, "")
	require.NoError(t, err)
	d.Status = domain.DealComplete
	require.NoError(t, InsertDeal(ctx, s.Db, d))

	tr := domain.NewDealTransaction(d, time.Now().UTC())
	require.NoError(t, InsertTransaction(ctx, s.Db, tr))
	assert.NotZero(t, tr.ID)

	bal, err = s.Balance(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), bal.Total)

	entries, err := s.GetEntries(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(100), entries[0].Delta)

	_, err = s.GetEntries(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	// A deal settles at most once.
	again := domain.NewDealTransaction(d, time.Now().UTC())
	assert.True(t, IsUniqueViolation(InsertTransaction(ctx, s.Db, again)), fmt.Sprintf("deal %s", d.ID))
}

func TestLinkTelegram(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := createUser(t, s)
	b := createUser(t, s)
	chat := time.Now().UnixNano()

	require.NoError(t, s.LinkTelegram(ctx, a.ID, chat, "alice"))
	got, err := s.UserByTelegram(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	assert.ErrorIs(t, s.LinkTelegram(ctx, b.ID, chat, "bob"), ErrTelegramTaken)
	assert.ErrorIs(t, s.LinkTelegram(ctx, -1, chat+1, "x"), domain.ErrUserNotFound)
}
