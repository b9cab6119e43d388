package exitcode

const (
	Success     = 0
	UsageError  = 1
	IOError     = 2
	StoreError  = 3
	ExportError = 4
)
