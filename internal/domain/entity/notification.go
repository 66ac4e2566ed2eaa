package entity

// Icon selects how a notification is styled
type Icon string

const (
	IconSuccess Icon = "success"
	IconError   Icon = "error"
	IconWarning Icon = "warning"
	IconInfo    Icon = "info"
)

// Notification is a one-shot message shown to the user
type Notification struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Icon  Icon   `json:"icon"`
}

// Success builds a success notification
func Success(text string) *Notification {
	return &Notification{Title: "Éxito", Text: text, Icon: IconSuccess}
}

// Failure builds an error notification
func Failure(text string) *Notification {
	return &Notification{Title: "Error", Text: text, Icon: IconError}
}
