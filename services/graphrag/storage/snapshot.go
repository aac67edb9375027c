// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

const snapshotPrefix = "snapshot"

// SaveSnapshot durably replaces the named structure's full serialized
// state in one committed transaction. The graph and vector stores call
// this on every mutation, so a successful return means the entire current
// state of the structure is on disk.
func (s *Store) SaveSnapshot(name string, data []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storageKey(snapshotPrefix, name), data)
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	return nil
}

// LoadSnapshot reads the named structure's last saved state. Returns
// false when no snapshot has been written yet.
func (s *Store) LoadSnapshot(name string) ([]byte, bool, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storageKey(snapshotPrefix, name))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load snapshot %s: %w", name, err)
	}
	return data, true, nil
}
