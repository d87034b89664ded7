package twai

import "fmt"

type NewDriverFunc func(channel string) (Driver, error)

var AvailableDrivers = make(map[string]NewDriverFunc)
var ImplementedDrivers = []string{
	"socketcan",
	"virtual",
}

// Register a new TWAI driver type
// This should be called inside an init() function of the driver subpackage
func RegisterDriver(driverType string, newDriver NewDriverFunc) {
	AvailableDrivers[driverType] = newDriver
}

// Create a new driver of the given type
// Currently supported : socketcan, virtual
func NewDriver(driverType string, channel string) (Driver, error) {
	createDriver, ok := AvailableDrivers[driverType]
	if !ok {
		return nil, fmt.Errorf("unsupported driver : %v", driverType)
	}
	return createDriver(channel)
}
