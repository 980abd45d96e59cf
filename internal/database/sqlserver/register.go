package sqlserver

import (
	"context"

	"github.com/koustreak/tablescan/internal/database"
	"github.com/koustreak/tablescan/internal/discovery"
)

func init() {
	discovery.Register(discovery.Registration{
		Info: discovery.EngineInfo{
			Name:        string(database.EngineSQLServer),
			DisplayName: "Microsoft SQL Server",
		},
		Driver: NewDriver(),
		Open: func(ctx context.Context, cfg *database.Config) (database.Pool, error) {
			p, err := Open(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
	})
}
