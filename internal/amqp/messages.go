package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"dailyowo/internal/core"
)

// BudgetAlertMessage carries one budget alert for one user to the
// notification pipeline.
type BudgetAlertMessage struct {
	UserID    string           `json:"userId"`
	BudgetID  string           `json:"budgetId,omitempty"`
	Alert     core.BudgetAlert `json:"alert"`
	Timestamp time.Time        `json:"timestamp"`
}

var errInvalidMessage = errors.New("invalid budget alert message")

func NewBudgetAlertMessage(userID, budgetID string, alert core.BudgetAlert) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		UserID:    userID,
		BudgetID:  budgetID,
		Alert:     alert,
		Timestamp: time.Now(),
	}
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON decodes a message and rejects payloads that
// lack a user or an alert ID.
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" || msg.Alert.ID == "" {
		return nil, errInvalidMessage
	}
	return &msg, nil
}
