package common

import (
	"github.com/google/uuid"
)

// NewTenantID generates a unique tenant ID with the "tnt_" prefix
func NewTenantID() string {
	return "tnt_" + uuid.New().String()
}

// NewMemoID generates a unique memo ID with the "memo_" prefix
func NewMemoID() string {
	return "memo_" + uuid.New().String()
}

// NewEventID generates a unique event ID with the "evt_" prefix
func NewEventID() string {
	return "evt_" + uuid.New().String()
}

// NewNotificationID generates a unique notification ID with the "ntf_" prefix
func NewNotificationID() string {
	return "ntf_" + uuid.New().String()
}

// NewID generates a bare UUID for records without a prefix convention
func NewID() string {
	return uuid.New().String()
}
