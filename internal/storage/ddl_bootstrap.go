package storage

import (
	"context"
	"fmt"
	"log"
	"sync"

	"datapipe/internal/ddl"
)

// DDLBuilder renders the statements that prepare td on a backend, in order.
// For CreateIfAbsent that is a single CREATE TABLE IF NOT EXISTS; for Replace
// it is a DROP TABLE IF EXISTS followed by CREATE TABLE.
//
// Backends register their builder for a storage kind at init time.
type DDLBuilder func(td ddl.TableDef, mode CreateMode) ([]string, error)

var (
	ddlMu  sync.RWMutex
	ddlFns = map[string]DDLBuilder{}
)

// RegisterDDL registers (or replaces) the DDLBuilder for kind.
func RegisterDDL(kind string, fn DDLBuilder) {
	ddlMu.Lock()
	defer ddlMu.Unlock()
	ddlFns[kind] = fn
}

// BuildDDL returns the statements EnsureTable would run, without running them.
func BuildDDL(kind string, td ddl.TableDef, mode CreateMode) ([]string, error) {
	ddlMu.RLock()
	fn, ok := ddlFns[kind]
	ddlMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no DDL builder registered for storage.kind=%q", kind)
	}
	return fn(td, mode)
}

// EnsureTable prepares td on repo according to mode. Callers stay
// backend-agnostic: the builder is selected by repo.Kind().
func EnsureTable(ctx context.Context, repo Repository, td ddl.TableDef, mode CreateMode) error {
	stmts, err := BuildDDL(repo.Kind(), td, mode)
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if err := repo.Exec(ctx, s); err != nil {
			return fmt.Errorf("apply DDL for %s: %w", td.FQN, err)
		}
	}
	log.Printf("storage: table %s ready (kind=%s mode=%s columns=%d)", td.FQN, repo.Kind(), mode, len(td.Columns))
	return nil
}
