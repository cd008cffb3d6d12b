package store

import (
	"encoding/json"
	"fmt"
)

// Document versions:
// v1: unversioned document as written by the browser client
// v2: explicit "version" field; collections and settings always present
const CurrentVersion = 2

type migration func(doc map[string]json.RawMessage) error

// migrations maps a version to the step that upgrades it to version+1.
var migrations = map[int]migration{
	1: migrateV1ToV2,
}

var collectionKeys = []string{"inventory", "sales", "employees", "expenses", "auditLogs"}

func migrateV1ToV2(doc map[string]json.RawMessage) error {
	for _, key := range collectionKeys {
		if isAbsent(doc[key]) {
			doc[key] = json.RawMessage("[]")
		}
	}
	if isAbsent(doc["settings"]) {
		payload, err := json.Marshal(DefaultState().Settings)
		if err != nil {
			return err
		}
		doc["settings"] = payload
	}
	if _, ok := doc["user"]; !ok {
		doc["user"] = json.RawMessage("null")
	}
	return nil
}

func runMigrations(doc map[string]json.RawMessage, from int) error {
	for version := from; version < CurrentVersion; version++ {
		step, ok := migrations[version]
		if !ok {
			return fmt.Errorf("%w: no migration from v%d", ErrUnsupportedVersion, version)
		}
		if err := step(doc); err != nil {
			return fmt.Errorf("migrate v%d: %w", version, err)
		}
	}
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
