package domain

import (
	"fmt"
	"strconv"
)

const usernamePrefix = "tg_user_"

// PanelUsername derives the deterministic panel username for a requester.
func PanelUsername(requesterID int64) string {
	return usernamePrefix + strconv.FormatInt(requesterID, 10)
}

// Requester identifies the chat user invoking an operation.
type Requester struct {
	ID        int64
	Username  string
	FirstName string
}

func (r Requester) DisplayName() string {
	if r.Username != "" {
		return "@" + r.Username
	}
	return fmt.Sprintf("ID:%d", r.ID)
}

// ProvisionedAccount holds credentials returned once by user creation.
// The password is not re-derivable.
type ProvisionedAccount struct {
	Username      string
	Password      string
	PlanName      string
	ServerMessage string
}

// AccountStatus is the panel's view of a provisioned user.
type AccountStatus struct {
	Username          string
	PlanID            int64
	UsedVolumeMB      float64
	RemainingVolumeMB float64
	RemainingDays     int64
	ExpiryDate        string
	Status            string
}
