package workflow

import "fmt"

// Kind discriminates the confirmation-gated action variants. Each variant
// carries exactly the fields it needs; there is no shared dialog object with
// impossible field combinations.
type Kind string

const (
	KindBatchDelete Kind = "batch_delete"
	KindUserDelete  Kind = "user_delete"
	KindBan         Kind = "ban"
	KindUnban       Kind = "unban"
	KindPurgeLogs   Kind = "purge_audit_logs"
)

// Action is one confirmation-gated operation against the backend.
type Action interface {
	Kind() Kind
	// Origin names the concurrency domain: only one workflow per origin may
	// be executing at a time, a second invocation is rejected rather than
	// queued.
	Origin() string
	// Irreversible actions additionally gate execution on a typed
	// confirmation phrase.
	Irreversible() bool
	Title() string
	Message() string
}

// BatchDelete removes every user at one activity level.
type BatchDelete struct {
	ActivityLevel string
	HardDelete    bool
}

func (a BatchDelete) Kind() Kind         { return KindBatchDelete }
func (a BatchDelete) Origin() string     { return "users:batch-delete" }
func (a BatchDelete) Irreversible() bool { return a.HardDelete }
func (a BatchDelete) Title() string      { return "Batch delete users" }

func (a BatchDelete) Message() string {
	mode := "deactivate"
	if a.HardDelete {
		mode = "permanently delete"
	}
	return fmt.Sprintf("This will %s every user with activity level %q.", mode, a.ActivityLevel)
}

// UserDelete removes a single user.
type UserDelete struct {
	UserID     int64
	Username   string
	HardDelete bool
}

func (a UserDelete) Kind() Kind         { return KindUserDelete }
func (a UserDelete) Origin() string     { return fmt.Sprintf("users:%d:delete", a.UserID) }
func (a UserDelete) Irreversible() bool { return a.HardDelete }
func (a UserDelete) Title() string      { return "Delete user" }

func (a UserDelete) Message() string {
	mode := "deactivate"
	if a.HardDelete {
		mode = "permanently delete"
	}
	return fmt.Sprintf("This will %s user %s (#%d).", mode, a.Username, a.UserID)
}

// Ban disables one account.
type Ban struct {
	UserID        int64
	Username      string
	Reason        string
	DisableTokens bool
	Context       string
}

func (a Ban) Kind() Kind         { return KindBan }
func (a Ban) Origin() string     { return fmt.Sprintf("users:%d:ban", a.UserID) }
func (a Ban) Irreversible() bool { return false }
func (a Ban) Title() string      { return "Ban user" }

func (a Ban) Message() string {
	msg := fmt.Sprintf("This will ban user %s (#%d).", a.Username, a.UserID)
	if a.DisableTokens {
		msg += " All of the user's tokens will be disabled."
	}
	return msg
}

// Unban lifts a ban.
type Unban struct {
	UserID       int64
	Username     string
	Reason       string
	EnableTokens bool
	Context      string
}

func (a Unban) Kind() Kind         { return KindUnban }
func (a Unban) Origin() string     { return fmt.Sprintf("users:%d:ban", a.UserID) }
func (a Unban) Irreversible() bool { return false }
func (a Unban) Title() string      { return "Unban user" }

func (a Unban) Message() string {
	msg := fmt.Sprintf("This will lift the ban on user %s (#%d).", a.Username, a.UserID)
	if a.EnableTokens {
		msg += " The user's tokens will be re-enabled."
	}
	return msg
}

// PurgeLogs wipes the scanner audit trail.
type PurgeLogs struct{}

func (a PurgeLogs) Kind() Kind         { return KindPurgeLogs }
func (a PurgeLogs) Origin() string     { return "ai-ban:audit-logs:purge" }
func (a PurgeLogs) Irreversible() bool { return true }
func (a PurgeLogs) Title() string      { return "Purge scan audit logs" }
func (a PurgeLogs) Message() string {
	return "This will permanently delete the entire scanner audit trail."
}
