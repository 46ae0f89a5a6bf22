package models

// User is the authenticated principal for a request. ID is the subject
// claim from the identity provider and doubles as the chat user id the
// notification sink addresses.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}
