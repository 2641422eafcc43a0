package remote

import "strings"

// Todo is a task record exchanged with the todo API. The expr tags name the
// fields for filter expressions.
type Todo struct {
	ID          string `json:"id" expr:"id"`
	Title       string `json:"title" expr:"title"`
	Completed   bool   `json:"completed,omitempty" expr:"completed"`
	Description string `json:"description,omitempty" expr:"description"`
	Priority    int    `json:"priority,omitempty" expr:"priority"`
}

// IsProvisional reports whether the todo still carries a client-side
// placeholder id.
func (t Todo) IsProvisional() bool {
	return strings.HasPrefix(t.ID, "temp-")
}

// TodoList is the envelope for list and batch payloads.
type TodoList struct {
	Items []Todo `json:"items"`
}

// ErrorResponse is the body the API sends with a failing status.
type ErrorResponse struct {
	Error string `json:"error"`
}
