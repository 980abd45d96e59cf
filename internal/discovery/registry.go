package discovery

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/errs"
)

// EngineInfo describes a registered engine for listings.
type EngineInfo struct {
	Name        string `json:"name"`         // "postgres", "sqlserver"
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Strategy    string `json:"strategy"`     // filled from the driver
}

// Registration bundles an engine's driver with its pool factory.
type Registration struct {
	Info   EngineInfo
	Driver Driver
	Open   func(ctx context.Context, cfg *database.Config) (database.Pool, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Registration)
)

// Register is called by each engine package's init() function.
func Register(reg Registration) {
	if reg.Driver == nil || reg.Open == nil {
		panic("discovery: Register requires a driver and an open function")
	}
	if reg.Info.Name == "" {
		reg.Info.Name = reg.Driver.Name()
	}
	reg.Info.Strategy = reg.Driver.Strategy().String()

	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Name] = reg
}

// Lookup returns the registration for engine.
func Lookup(engine string) (Registration, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	reg, ok := registry[engine]
	if !ok {
		return Registration{}, errs.New(errs.ErrKindNotFound, fmt.Sprintf("engine %q is not registered", engine))
	}
	return reg, nil
}

// IsRegistered reports whether engine is available.
func IsRegistered(engine string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[engine]
	return ok
}

// Engines returns info for all registered engines ordered by name.
func Engines() []EngineInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]EngineInfo, 0, len(registry))
	for _, reg := range registry {
		out = append(out, reg.Info)
	}
	slices.SortFunc(out, func(a, b EngineInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
