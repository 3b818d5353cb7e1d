package alerting

import "fmt"

// AlertPersistenceError reports an alert that could not be stored for an
// already persisted reading. It is logged, never returned to the device.
type AlertPersistenceError struct {
	PotID     string
	ReadingID string
	Err       error
}

func (e *AlertPersistenceError) Error() string {
	return fmt.Sprintf("alert for reading %s (pot %s) not persisted: %v", e.ReadingID, e.PotID, e.Err)
}

func (e *AlertPersistenceError) Unwrap() error { return e.Err }
