package runtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/verimint/internal/storage"
	"github.com/Klingon-tech/verimint/pkg/types"
)

var prefixAccount = []byte("a/") // a/<address(32)> -> Account JSON

// Account is a program-owned record stored at a 32-byte address.
type Account struct {
	Owner types.Address   `json:"owner"`
	Kind  string          `json:"kind"`
	Data  json.RawMessage `json:"data"`
}

// Decode unmarshals the account data into v after checking its kind.
func (a *Account) Decode(kind string, v interface{}) error {
	if a.Kind != kind {
		return fmt.Errorf("%w: have %q, want %q", ErrWrongKind, a.Kind, kind)
	}
	if err := json.Unmarshal(a.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", kind, err)
	}
	return nil
}

// AccountReader gives read access to accounts.
type AccountReader interface {
	Account(addr types.Address) (*Account, error)
}

// accountStore reads and writes accounts in a key/value store.
type accountStore struct {
	db storage.DB
}

func newAccountStore(db storage.DB) *accountStore {
	return &accountStore{db: storage.NewPrefixDB(db, prefixAccount)}
}

func (s *accountStore) get(addr types.Address) (*Account, error) {
	data, err := s.db.Get(addr[:])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
		}
		return nil, fmt.Errorf("account get: %w", err)
	}
	var acct Account
	if err := json.Unmarshal(data, &acct); err != nil {
		return nil, fmt.Errorf("account unmarshal: %w", err)
	}
	return &acct, nil
}

func (s *accountStore) has(addr types.Address) (bool, error) {
	return s.db.Has(addr[:])
}

func (s *accountStore) put(addr types.Address, acct *Account) error {
	data, err := json.Marshal(acct)
	if err != nil {
		return fmt.Errorf("account marshal: %w", err)
	}
	return s.db.Put(addr[:], data)
}

// forEach iterates accounts in address order.
func (s *accountStore) forEach(fn func(types.Address, *Account) error) error {
	return s.db.ForEach(nil, func(key, value []byte) error {
		if len(key) != types.AddressSize {
			return nil // Malformed key, skip.
		}
		var addr types.Address
		copy(addr[:], key)
		var acct Account
		if err := json.Unmarshal(value, &acct); err != nil {
			return nil // Skip corrupt entries.
		}
		return fn(addr, &acct)
	})
}
