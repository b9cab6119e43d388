package model

import (
	"fmt"
	"strings"
)

// StatisticRow mirrors the Parquet schema written by the extract command.
// Times are microseconds since the Unix epoch; durations are nanoseconds.
type StatisticRow struct {
	ContextID   string  `parquet:"context_id"`
	StartTimeUS int64   `parquet:"start_time_us"`
	EndTimeUS   int64   `parquet:"end_time_us"`
	ElapsedNS   int64   `parquet:"elapsed_ns"`
	ReturnCode  int32   `parquet:"return_code"`
	CommandName *string `parquet:"command_name,optional"`
	Table       *string `parquet:"table,optional"`
	RawCommand  string  `parquet:"raw_command"`
	NOperations int32   `parquet:"n_operations"`
	Operations  string  `parquet:"operations"` // "name:elapsed_ns:records" joined by ";"
}

// NewStatisticRow flattens a finished statistic.
func NewStatisticRow(s *Statistic) StatisticRow {
	row := StatisticRow{
		ContextID:   s.ContextID,
		StartTimeUS: s.StartTime.UnixMicro(),
		EndTimeUS:   s.EndTime().UnixMicro(),
		ElapsedNS:   s.Elapsed.Nanoseconds(),
		ReturnCode:  int32(s.ReturnCode),
		RawCommand:  s.RawCommand,
		NOperations: int32(len(s.Operations)),
	}
	if s.Command != nil {
		name := s.Command.Name
		row.CommandName = &name
		if table, ok := s.Command.Arg("table"); ok {
			row.Table = &table
		}
	}
	ops := make([]string, len(s.Operations))
	for i, op := range s.Operations {
		ops[i] = formatOperation(op)
	}
	row.Operations = strings.Join(ops, ";")
	return row
}

func formatOperation(op Operation) string {
	return fmt.Sprintf("%s:%d:%d", op.Name, op.Elapsed.Nanoseconds(), op.Records)
}
