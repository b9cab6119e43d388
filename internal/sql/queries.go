package sql

import "embed"

// Migrations holds the Postgres schema, applied in filename order.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/insert_check_run.sql
var InsertCheckRun string

//go:embed queries/insert_log_file.sql
var InsertLogFile string

//go:embed sqlite/schema.sql
var SQLiteSchema string
