package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeAccessChanged is the task type for role grant/revoke notifications.
	TaskTypeAccessChanged = "access:changed"
	// TaskTypeAccessSweep is the task type purging long-revoked assignments.
	TaskTypeAccessSweep = "access:sweep"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: integrate with SMTP relay once provisioned.
	fmt.Printf("[jobs] send email to %s subject=%s\n", payload.To, payload.Subject)
	return nil
}

// AccessChangedPayload describes a role grant or revoke to notify about.
type AccessChangedPayload struct {
	Action       string `json:"action"`
	UserID       string `json:"user_id"`
	RoleName     string `json:"role_name"`
	Organization string `json:"organization,omitempty"`
	ActorID      string `json:"actor_id"`
}

// NewAccessChangedTask constructs an Asynq task for a role change event.
func NewAccessChangedTask(payload AccessChangedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAccessChanged, data), nil
}

// NewAccessSweepTask constructs the periodic sweep task.
func NewAccessSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAccessSweep, nil)
}
