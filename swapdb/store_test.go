package swapdb_test

import (
	"testing"
	"time"

	"github.com/comit-network/swapd/swap"
	"github.com/comit-network/swapd/swapdb"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *swapdb.DB {
	t.Helper()
	db, err := swapdb.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testParams(t *testing.T) swap.SwapParams {
	t.Helper()
	id, err := swap.NewId()
	require.NoError(t, err)
	return swap.SwapParams{
		SwapId:       id,
		Counterparty: swap.PeerId("peer-a"),
		StartOfSwap:  time.Unix(1_700_000_000, 0),
	}
}

func TestCreateAndLoadSwap(t *testing.T) {
	db := openTestDB(t)
	params := testParams(t)

	require.NoError(t, db.CreateSwap(params))

	loaded, err := db.LoadParams(params.SwapId)
	require.NoError(t, err)
	require.Equal(t, params.SwapId, loaded.SwapId)
	require.Equal(t, params.Counterparty, loaded.Counterparty)
}

func TestCreateSwapRejectsDuplicate(t *testing.T) {
	db := openTestDB(t)
	params := testParams(t)

	require.NoError(t, db.CreateSwap(params))
	err := db.CreateSwap(params)
	require.ErrorIs(t, err, swapdb.ErrSwapAlreadyExists)
}

func TestLoadParamsMissing(t *testing.T) {
	db := openTestDB(t)
	id, err := swap.NewId()
	require.NoError(t, err)

	_, err = db.LoadParams(id)
	require.ErrorIs(t, err, swapdb.ErrSwapNotFound)
}

func TestSaveEventIsCompareAndSwap(t *testing.T) {
	db := openTestDB(t)
	params := testParams(t)
	require.NoError(t, db.CreateSwap(params))

	event := swap.HbitFunded{Status: swap.FundedCorrectly, AssetSat: 100_000}
	require.NoError(t, db.SaveHbitFunded(params.SwapId, event))

	err := db.SaveHbitFunded(params.SwapId, event)
	require.ErrorIs(t, err, swapdb.ErrEventAlreadyRecorded)

	events, err := db.LoadEvents(params.SwapId)
	require.NoError(t, err)
	require.NotNil(t, events.HbitFunded)
	require.Equal(t, event.AssetSat, events.HbitFunded.AssetSat)
}

func TestAllSwapIdsAndDelete(t *testing.T) {
	db := openTestDB(t)
	p1 := testParams(t)
	p2 := testParams(t)
	require.NoError(t, db.CreateSwap(p1))
	require.NoError(t, db.CreateSwap(p2))

	ids, err := db.AllSwapIds()
	require.NoError(t, err)
	require.Len(t, ids, 2)

	require.NoError(t, db.DeleteSwap(p1.SwapId))

	ids, err = db.AllSwapIds()
	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.Equal(t, p2.SwapId, ids[0])
}

func TestPinPeerRejectsSecondSwap(t *testing.T) {
	db := openTestDB(t)
	peer := swap.PeerId("peer-a")

	id1, err := swap.NewId()
	require.NoError(t, err)
	id2, err := swap.NewId()
	require.NoError(t, err)

	require.NoError(t, db.PinPeer(peer, id1))
	require.NoError(t, db.PinPeer(peer, id1)) // re-pinning the same swap is a no-op

	err = db.PinPeer(peer, id2)
	require.ErrorIs(t, err, swapdb.ErrPeerAlreadyActive)

	require.NoError(t, db.UnpinPeer(peer))
	require.NoError(t, db.PinPeer(peer, id2))

	active, found, err := db.ActiveSwapFor(peer)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, id2, active)
}

func TestNextTransientKeyIndexMonotonic(t *testing.T) {
	db := openTestDB(t)

	first, err := db.NextTransientKeyIndex()
	require.NoError(t, err)
	second, err := db.NextTransientKeyIndex()
	require.NoError(t, err)

	require.Equal(t, first+1, second)
}

func TestRecordHistoryClearsWorkingState(t *testing.T) {
	db := openTestDB(t)
	params := testParams(t)
	require.NoError(t, db.CreateSwap(params))
	require.NoError(t, db.PinPeer(params.Counterparty, params.SwapId))

	rec := swapdb.HistoryRecord{
		SwapId:   params.SwapId,
		Role:     swap.RoleAlice,
		Ordering: swap.HbitHerc20,
		Outcome:  swap.OutcomeBothRedeemed,
		ClosedAt: time.Unix(1_700_000_100, 0),
	}
	require.NoError(t, db.RecordHistory(rec, params.Counterparty))

	_, err := db.LoadParams(params.SwapId)
	require.ErrorIs(t, err, swapdb.ErrSwapNotFound)

	_, found, err := db.ActiveSwapFor(params.Counterparty)
	require.NoError(t, err)
	require.False(t, found)

	history, err := db.History()
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, swap.OutcomeBothRedeemed, history[0].Outcome)
}
