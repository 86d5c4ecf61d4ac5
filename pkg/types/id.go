package types

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// GenerateReportID generates a unique cost report ID with prefix
func GenerateReportID() string {
	return fmt.Sprintf("rpt_%s", ksuid.New().String())
}

// GenerateID generates a generic unique ID
func GenerateID() string {
	return ksuid.New().String()
}
