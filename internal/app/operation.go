package app

// Operation statuses recorded when a command finishes.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// DeskOperation tracks a CLI command that may mutate the cache or the sheets.
// Operations are created in memory with ID=0. Only mutating commands
// persist them (giving them an auto-increment ID from the store).
type DeskOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
}

// NewDeskOperation creates a new in-memory operation.
func NewDeskOperation(operation, parameters string) *DeskOperation {
	return &DeskOperation{
		Operation:  operation,
		Parameters: parameters,
		Status:     StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the store.
func (op *DeskOperation) Persisted() bool {
	return op.ID != 0
}
