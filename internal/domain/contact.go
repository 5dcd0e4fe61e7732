package domain

import "time"

// ContactMessage is a message submitted through the storefront contact form.
type ContactMessage struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"receivedAt"`
}
