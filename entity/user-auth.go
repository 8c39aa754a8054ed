package entity

// UserAuth is the identity behind an API key. Agents act under their
// username; it doubles as the assignee id on conversations.
type UserAuth struct {
	Username string `json:"username"`
}
