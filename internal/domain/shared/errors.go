package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so that
// errors created with a custom message still match the sentinel values.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidState          = "INVALID_STATE"
	CodeAlreadyPosted         = "ALREADY_POSTED"
	CodeInvalidDocument       = "INVALID_DOCUMENT"
	CodeInvalidQuantity       = "INVALID_QUANTITY"
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodeUnitConversionUnknown = "UNIT_CONVERSION_UNKNOWN"
	CodeLockNotObtained       = "LOCK_NOT_OBTAINED"
)

// Common domain errors
var (
	ErrNotFound              = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists         = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput          = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState          = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrAlreadyPosted         = NewDomainError(CodeAlreadyPosted, "Document has already been posted")
	ErrInvalidDocument       = NewDomainError(CodeInvalidDocument, "Document is not valid for posting")
	ErrInvalidQuantity       = NewDomainError(CodeInvalidQuantity, "Quantity must be positive")
	ErrInsufficientStock     = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrUnitConversionUnknown = NewDomainError(CodeUnitConversionUnknown, "No conversion between units")
	ErrLockNotObtained       = NewDomainError(CodeLockNotObtained, "Stock is locked by another operation")
)
