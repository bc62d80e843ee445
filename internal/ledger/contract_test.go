package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"pollbook/pkg/platform/sentinel"
	"pollbook/pkg/requestcontext"
)

// StoreContractSuite runs the same behavioural checks against every backend.
type StoreContractSuite struct {
	suite.Suite
	newStore func() Store
	store    Store
	ctx      context.Context
}

func (s *StoreContractSuite) SetupTest() {
	s.store = s.newStore()
	s.ctx = context.Background()
}

func (s *StoreContractSuite) TearDownTest() {
	_ = s.store.Close()
}

func (s *StoreContractSuite) put(key Key, value string) {
	s.Require().NoError(s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		return tx.Put(ctx, key, []byte(value))
	}))
}

func (s *StoreContractSuite) TestGetAndPut() {
	key := NewKey("survey", "1")

	s.Run("missing key is not found", func() {
		_, err := s.store.Get(s.ctx, key)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		ok, err := s.store.Has(s.ctx, key)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("put is visible after commit", func() {
		s.put(key, "first")
		raw, err := s.store.Get(s.ctx, key)
		s.Require().NoError(err)
		s.Equal("first", string(raw))
	})

	s.Run("put overwrites", func() {
		s.put(key, "second")
		raw, err := s.store.Get(s.ctx, key)
		s.Require().NoError(err)
		s.Equal("second", string(raw))
	})
}

func (s *StoreContractSuite) TestCreateIsWriteOnce() {
	key := NewKey("vote", "1", "GVOTER")

	s.Require().NoError(s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		return tx.Create(ctx, key, []byte("A"))
	}))

	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		return tx.Create(ctx, key, []byte("B"))
	})
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	raw, err := s.store.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Equal("A", string(raw))
}

func (s *StoreContractSuite) TestTxReadsOwnWrites() {
	key := NewKey("survey_count")
	s.Require().NoError(s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		if err := PutUint64(ctx, tx, key, 41); err != nil {
			return err
		}
		n, err := Uint64Or(ctx, tx, key, 0)
		if err != nil {
			return err
		}
		s.Equal(uint64(41), n)
		ok, err := tx.Has(ctx, key)
		if err != nil {
			return err
		}
		s.True(ok)
		return PutUint64(ctx, tx, key, n+1)
	}))

	n, err := Uint64Or(s.ctx, s.store, key, 0)
	s.Require().NoError(err)
	s.Equal(uint64(42), n)
}

func (s *StoreContractSuite) TestFailedTxLeavesNoTrace() {
	boom := errors.New("boom")
	first := NewKey("vote", "1", "GVOTER")
	second := NewKey("vote_count", "1", "GCAND")

	err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Create(ctx, first, []byte("GCAND")); err != nil {
			return err
		}
		if err := PutUint64(ctx, tx, second, 1); err != nil {
			return err
		}
		return boom
	})
	s.Require().ErrorIs(err, boom)

	for _, key := range []Key{first, second} {
		ok, err := s.store.Has(s.ctx, key)
		s.Require().NoError(err)
		s.False(ok, "key %s must not be visible", key)
	}
}

func (s *StoreContractSuite) TestExtend() {
	key := NewKey("survey", "9")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(s.ctx, base)

	s.Run("absent key", func() {
		err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
			return tx.Extend(ctx, key, time.Hour)
		})
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("no lifetime recorded yet", func() {
		s.put(key, "s")
		_, ok, err := s.store.ExpiresAt(s.ctx, key)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("moves forward only", func() {
		s.Require().NoError(s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
			return tx.Extend(ctx, key, 10*time.Hour)
		}))
		s.Require().NoError(s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
			return tx.Extend(ctx, key, time.Hour)
		}))
		at, ok, err := s.store.ExpiresAt(s.ctx, key)
		s.Require().NoError(err)
		s.True(ok)
		s.True(at.Equal(base.Add(10*time.Hour)), "got %s", at)
	})

	s.Run("extend a key created in the same transaction", func() {
		fresh := NewKey("voter_list", "9")
		s.Require().NoError(s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
			if err := tx.Put(ctx, fresh, []byte("[]")); err != nil {
				return err
			}
			return tx.Extend(ctx, fresh, 2*time.Hour)
		}))
		at, ok, err := s.store.ExpiresAt(s.ctx, fresh)
		s.Require().NoError(err)
		s.True(ok)
		s.True(at.Equal(base.Add(2*time.Hour)), "got %s", at)
	})
}

func (s *StoreContractSuite) TestConcurrentCreateHasOneWinner() {
	key := NewKey("vote", "3", "GSAME")
	const workers = 12

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
				return tx.Create(ctx, key, []byte{byte('a' + i)})
			})
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			lost++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, won)
	s.Equal(workers-1, lost)
}

func (s *StoreContractSuite) TestConcurrentIncrementsAreSerialized() {
	key := NewKey("vote_count", "4", "GCAND")
	const workers = 10

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
				n, err := Uint64Or(ctx, tx, key, 0)
				if err != nil {
					return err
				}
				return PutUint64(ctx, tx, key, n+1)
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	n, err := Uint64Or(s.ctx, s.store, key, 0)
	s.Require().NoError(err)
	s.Equal(uint64(workers), n)
}

func (s *StoreContractSuite) TestViewNeverSeesHalfACommit() {
	left := NewKey("vote_count", "5", "GLEFT")
	right := NewKey("total_votes", "5")
	const writes = 20

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		for range writes {
			err := s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
				n, err := Uint64Or(ctx, tx, left, 0)
				if err != nil {
					return err
				}
				if err := PutUint64(ctx, tx, left, n+1); err != nil {
					return err
				}
				return PutUint64(ctx, tx, right, n+1)
			})
			s.NoError(err)
		}
	}()

	for reading := true; reading; {
		select {
		case <-done:
			reading = false
		default:
		}
		var l, r uint64
		err := s.store.View(s.ctx, func(ctx context.Context, rd Reader) error {
			var err error
			if l, err = Uint64Or(ctx, rd, left, 0); err != nil {
				return err
			}
			r, err = Uint64Or(ctx, rd, right, 0)
			return err
		})
		s.Require().NoError(err)
		s.Equal(l, r)
	}
	wg.Wait()
}

func (s *StoreContractSuite) TestViewAndJSON() {
	type record struct {
		Name  string   `json:"name"`
		Items []string `json:"items"`
	}
	key := NewKey("survey", "5")
	s.Require().NoError(s.store.RunInTx(s.ctx, func(ctx context.Context, tx Tx) error {
		return CreateJSON(ctx, tx, key, record{Name: "Lunch", Items: []string{"A", "B"}})
	}))

	s.Require().NoError(s.store.View(s.ctx, func(ctx context.Context, r Reader) error {
		got, ok, err := GetJSON[record](ctx, r, key)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(record{Name: "Lunch", Items: []string{"A", "B"}}, got)

		_, ok, err = GetJSON[record](ctx, r, NewKey("survey", "6"))
		s.Require().NoError(err)
		s.False(ok)
		return nil
	}))
}

func (s *StoreContractSuite) TestUndecodableValue() {
	key := NewKey("survey_count")
	s.put(key, "not-a-number")
	_, err := Uint64Or(s.ctx, s.store, key, 0)
	s.Require().ErrorIs(err, sentinel.ErrInvalidState)
}
