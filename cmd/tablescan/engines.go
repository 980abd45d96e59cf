package main

import (
	_ "github.com/koustreak/tablescan/internal/database/mysql"
	_ "github.com/koustreak/tablescan/internal/database/postgres"
	_ "github.com/koustreak/tablescan/internal/database/sqlite"
	_ "github.com/koustreak/tablescan/internal/database/sqlserver"
)
