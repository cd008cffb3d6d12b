package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nexuserp/backend/internal/domain"
)

type document struct {
	Version int `json:"version"`
	domain.BusinessState
}

// StateStore persists the whole BusinessState as one versioned JSON document
// in a single slot. Every Save overwrites the slot (last writer wins).
type StateStore struct {
	slot   Slot
	key    string
	logger *zap.Logger
}

var _ Repository = (*StateStore)(nil)

func NewStateStore(slot Slot, key string, logger *zap.Logger) *StateStore {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateStore{slot: slot, key: key, logger: logger}
}

func (s *StateStore) Key() string {
	return s.key
}

// Load returns the stored state, seeding the slot with DefaultState when it is
// empty. Documents from older versions are migrated and written back.
func (s *StateStore) Load(ctx context.Context) (domain.BusinessState, error) {
	raw, err := s.slot.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		seed := DefaultState()
		if err := s.Save(ctx, seed); err != nil {
			return domain.BusinessState{}, fmt.Errorf("seed state: %w", err)
		}
		s.logger.Info("seeded default business state", zap.String("key", s.key))
		return seed, nil
	}
	if err != nil {
		return domain.BusinessState{}, fmt.Errorf("read slot %q: %w", s.key, err)
	}

	state, fromVersion, err := decodeDocument(raw)
	if err != nil {
		return domain.BusinessState{}, err
	}
	if fromVersion < CurrentVersion {
		if err := s.Save(ctx, state); err != nil {
			return domain.BusinessState{}, fmt.Errorf("persist migrated state: %w", err)
		}
		s.logger.Info("migrated business state",
			zap.String("key", s.key),
			zap.Int("from_version", fromVersion),
			zap.Int("to_version", CurrentVersion))
	}
	return state, nil
}

func (s *StateStore) Save(ctx context.Context, state domain.BusinessState) error {
	payload, err := encodeDocument(state)
	if err != nil {
		return err
	}
	if err := s.slot.Put(ctx, s.key, payload); err != nil {
		return fmt.Errorf("write slot %q: %w", s.key, err)
	}
	return nil
}

func encodeDocument(state domain.BusinessState) ([]byte, error) {
	state = state.Clone()
	state.Normalize()
	payload, err := json.Marshal(document{Version: CurrentVersion, BusinessState: state})
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return payload, nil
}

func decodeDocument(raw []byte) (domain.BusinessState, int, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.BusinessState{}, 0, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if doc == nil {
		return domain.BusinessState{}, 0, fmt.Errorf("%w: empty document", ErrCorruptState)
	}

	version := 1
	if rawVersion, ok := doc["version"]; ok && !isAbsent(rawVersion) {
		if err := json.Unmarshal(rawVersion, &version); err != nil {
			return domain.BusinessState{}, 0, fmt.Errorf("%w: version: %v", ErrCorruptState, err)
		}
	}
	if version < 1 {
		return domain.BusinessState{}, 0, fmt.Errorf("%w: version %d", ErrCorruptState, version)
	}
	if version > CurrentVersion {
		return domain.BusinessState{}, 0, fmt.Errorf("%w: v%d (supported up to v%d)", ErrUnsupportedVersion, version, CurrentVersion)
	}

	if err := runMigrations(doc, version); err != nil {
		return domain.BusinessState{}, 0, err
	}
	delete(doc, "version")

	normalized, err := json.Marshal(doc)
	if err != nil {
		return domain.BusinessState{}, 0, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	var state domain.BusinessState
	if err := json.Unmarshal(normalized, &state); err != nil {
		return domain.BusinessState{}, 0, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	state.Normalize()
	return state, version, nil
}
