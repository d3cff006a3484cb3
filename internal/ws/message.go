package ws

import "encoding/json"

// Message is the wire envelope: a type tag plus a type-specific payload.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message types - client to server
const (
	TypeAuthenticate      = "authenticate"
	TypeSelectRole        = "select_role"
	TypeCreateZone        = "create_zone"
	TypeDeleteZone        = "delete_zone"
	TypeUseSimulator      = "use_simulator"
	TypeSimulatorPosition = "simulator_position"
	TypeSimulatorMove     = "simulator_move"
	TypeDismissAlert      = "dismiss_alert"
	TypeReportLocation    = "report_location"
	TypeReportLocationErr = "report_location_error"
)

// Message types - server to client
const (
	TypeAuthenticated = "authenticated"
	TypePresence      = "presence"
	TypeZones         = "zones"
	TypeNotification  = "notification"
	TypeAlertDismiss  = "alert_dismiss"
	TypeLocationError = "location_error"
	TypeError         = "error"
)

// ErrorMessage is sent when a request fails.
type ErrorMessage struct {
	Message string `json:"message"`
}

// NewErrorMessage creates a Message with an error payload.
func NewErrorMessage(msg string) Message {
	data, _ := json.Marshal(ErrorMessage{Message: msg})
	return Message{Type: TypeError, Data: data}
}

// NewMessage creates a Message with a typed payload.
func NewMessage(msgType string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Data: data}, nil
}
