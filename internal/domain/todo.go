package domain

import "time"

// Todo is a task record owned by a single user. DueAt is optional; a todo
// without a due time never becomes overdue.
type Todo struct {
	TodoID    string     `json:"id" dynamodbav:"todo_id"`
	Username  string     `json:"username" dynamodbav:"username"`
	Task      string     `json:"task" dynamodbav:"task"`
	DueAt     *time.Time `json:"due_at,omitempty" dynamodbav:"due_at"`
	Completed bool       `json:"completed" dynamodbav:"completed"`
	CreatedAt time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Overdue reports whether the todo is incomplete and past its due time.
func (t *Todo) Overdue(now time.Time) bool {
	return !t.Completed && t.DueAt != nil && t.DueAt.Before(now)
}

type CreateTodoRequest struct {
	Task  string  `json:"task" validate:"required"`
	DueAt *string `json:"due_at"` // RFC 3339
}

type UpdateTodoRequest struct {
	Task      *string `json:"task"`
	DueAt     *string `json:"due_at"` // RFC 3339
	Completed *bool   `json:"completed"`
}
