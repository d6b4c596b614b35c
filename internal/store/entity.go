package store

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic CRUD operations for any domain type.
type Entity[T any] struct {
	store   *Store
	prefix  string
	indexes []Index[T]
}

// Index defines a non-unique secondary index on an entity.
type Index[T any] struct {
	name            string
	keyGen          func(*T) []string
	lookupTransform func(string) string // Optional transformation for lookups
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](s *Store, prefix string) *Entity[T] {
	return &Entity[T]{
		store:   s,
		prefix:  prefix,
		indexes: make([]Index[T], 0),
	}
}

// WithIndex adds a secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	return e.WithIndexTransform(name, keyGen, nil)
}

// WithIndexTransform adds a secondary index whose lookups pass through
// lookupTransform first, so keyGen and lookups can agree on a normal form.
func (e *Entity[T]) WithIndexTransform(name string, keyGen func(*T) []string, lookupTransform func(string) string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:            name,
		keyGen:          keyGen,
		lookupTransform: lookupTransform,
	})
	return e
}

// Save creates or replaces the entity stored under id, moving its index
// entries from the old values to the new ones in the same transaction.
func (e *Entity[T]) Save(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return ErrInvalidInput.WithDetails("empty id")
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		old, err := e.getTxn(txn, id)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			for _, idx := range e.indexes {
				for _, v := range idx.keyGen(old) {
					if err := txn.Delete(indexKey(e.prefix, idx.name, v, id)); err != nil {
						return fmt.Errorf("failed to delete index key: %w", err)
					}
				}
			}
		}

		if err := txn.Set(primaryKey(e.prefix, id), data); err != nil {
			return fmt.Errorf("failed to set key: %w", err)
		}
		for _, idx := range e.indexes {
			for _, v := range idx.keyGen(entity) {
				if err := txn.Set(indexKey(e.prefix, idx.name, v, id), nil); err != nil {
					return fmt.Errorf("failed to set index key: %w", err)
				}
			}
		}
		return nil
	})
}

// Get retrieves an entity by ID.
// Returns ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entity *T
	err := e.store.db.View(func(txn *badger.Txn) error {
		var err error
		entity, err = e.getTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity, nil
}

func (e *Entity[T]) getTxn(txn *badger.Txn, id string) (*T, error) {
	key := lookupKey(e.prefix, id)
	defer releaseKey(key)

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return &entity, nil
}

// Delete removes an entity and its index entries. Missing ids are not an error.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return e.store.db.Update(func(txn *badger.Txn) error {
		old, err := e.getTxn(txn, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, idx := range e.indexes {
			for _, v := range idx.keyGen(old) {
				if err := txn.Delete(indexKey(e.prefix, idx.name, v, id)); err != nil {
					return err
				}
			}
		}
		return txn.Delete(primaryKey(e.prefix, id))
	})
}

// ListByIndex returns every entity whose index name contains value.
func (e *Entity[T]) ListByIndex(ctx context.Context, name, value string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, idx := range e.indexes {
		if idx.name == name && idx.lookupTransform != nil {
			value = idx.lookupTransform(value)
			break
		}
	}
	prefix := []byte(indexPrefix(e.prefix, name, value))

	var out []*T
	err := e.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(bytes.TrimPrefix(it.Item().Key(), prefix))
			entity, err := e.getTxn(txn, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, entity)
		}
		return nil
	})
	return out, err
}

// All iterates over every entity in key order.
func (e *Entity[T]) All(ctx context.Context) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		err := e.store.db.View(func(txn *badger.Txn) error {
			it := e.primaryIterator(txn, true)
			defer it.Close()

			prefix := []byte(e.prefix)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				if err := ctx.Err(); err != nil {
					return err
				}
				if e.isIndexKey(it.Item().Key()) {
					continue
				}
				var entity T
				if err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &entity)
				}); err != nil {
					return fmt.Errorf("failed to unmarshal entity: %w", err)
				}
				if !yield(&entity, nil) {
					return errStopIteration
				}
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			yield(nil, err)
		}
	}
}

var errStopIteration = errors.New("stop iteration")

// Page returns up to params.Limit entities after the cursor, in key order.
func (e *Entity[T]) Page(ctx context.Context, params PaginationParams) (*PaginatedResult[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params.Validate()

	after, err := DecodeCursor(params.Cursor)
	if err != nil {
		return nil, ErrInvalidInput.WithDetails(err.Error())
	}

	result := &PaginatedResult[T]{Items: make([]T, 0, params.Limit)}
	err = e.store.db.View(func(txn *badger.Txn) error {
		it := e.primaryIterator(txn, true)
		defer it.Close()

		prefix := []byte(e.prefix)
		start := prefix
		if after != "" {
			start = primaryKey(e.prefix, after)
		}

		var lastID string
		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			if e.isIndexKey(key) {
				continue
			}
			id := string(key[len(prefix):])
			if id == after {
				continue
			}
			if len(result.Items) == params.Limit {
				result.HasMore = true
				result.NextCursor = EncodeCursor(lastID)
				return nil
			}

			var entity T
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entity)
			}); err != nil {
				return fmt.Errorf("failed to unmarshal entity: %w", err)
			}
			result.Items = append(result.Items, entity)
			lastID = id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Count returns the number of stored entities.
func (e *Entity[T]) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n := 0
	err := e.store.db.View(func(txn *badger.Txn) error {
		it := e.primaryIterator(txn, false)
		defer it.Close()

		prefix := []byte(e.prefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if !e.isIndexKey(it.Item().Key()) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (e *Entity[T]) primaryIterator(txn *badger.Txn, values bool) *badger.Iterator {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = values
	opts.Prefix = []byte(e.prefix)
	return txn.NewIterator(opts)
}

func (e *Entity[T]) isIndexKey(key []byte) bool {
	return strings.HasPrefix(string(key), e.prefix+"idx:")
}
