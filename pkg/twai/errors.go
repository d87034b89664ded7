package twai

// Driver error codes
type DriverError int8

func (e DriverError) Error() string {
	description, ok := driverErrorDescription[e]
	if ok {
		return description
	}
	return "Unknown error"
}

const (
	ErrOk           DriverError = 0
	ErrTimeout      DriverError = -1
	ErrInvalidState DriverError = -2
	ErrNotInstalled DriverError = -3
	ErrInvalidArg   DriverError = -4
	ErrFail         DriverError = -5
)

var driverErrorDescription = map[DriverError]string{
	ErrOk:           "Operation completed successfully",
	ErrTimeout:      "Operation timed out",
	ErrInvalidState: "Driver not started",
	ErrNotInstalled: "Driver not installed",
	ErrInvalidArg:   "Error in function arguments",
	ErrFail:         "Operation failed",
}
