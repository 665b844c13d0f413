package console

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/james-6-23/new-api-tools-sub000/internal/journal"
	"github.com/james-6-23/new-api-tools-sub000/internal/workflow"
)

// previewAction computes the dry-run effect of an action. Single-target
// actions have a fixed, known effect and return without touching the network.
func (s *Session) previewAction(ctx context.Context, action workflow.Action) (workflow.Preview, error) {
	switch a := action.(type) {
	case workflow.BatchDelete:
		res, err := s.deps.Upstream.BatchDeleteUsers(ctx, a.ActivityLevel, true, a.HardDelete)
		if err != nil {
			return workflow.Preview{}, err
		}
		return workflow.Preview{Count: res.Count, Samples: res.Users, UserIDs: res.UserIDs}, nil
	case workflow.UserDelete:
		res, err := s.deps.Upstream.DeleteUser(ctx, a.UserID, true, a.HardDelete)
		if err != nil {
			return workflow.Preview{}, err
		}
		return workflow.Preview{Count: res.Count, Samples: res.Users, UserIDs: []int64{a.UserID}}, nil
	case workflow.Ban:
		return workflow.Preview{Count: 1, Samples: []string{a.Username}, UserIDs: []int64{a.UserID}}, nil
	case workflow.Unban:
		return workflow.Preview{Count: 1, Samples: []string{a.Username}, UserIDs: []int64{a.UserID}}, nil
	case workflow.PurgeLogs:
		page, err := s.deps.Upstream.ScanAuditLogs(ctx, 1, 1)
		if err != nil {
			return workflow.Preview{}, err
		}
		return workflow.Preview{Count: int(page.Total)}, nil
	default:
		return workflow.Preview{}, fmt.Errorf("unknown action kind %q", action.Kind())
	}
}

func (s *Session) executeAction(ctx context.Context, action workflow.Action) (workflow.Result, error) {
	result, err := s.runAction(ctx, action)
	s.deps.Metrics.RecordWorkflow(string(action.Kind()), err)
	s.recordJournal(ctx, action, result, err)
	return result, err
}

func (s *Session) runAction(ctx context.Context, action workflow.Action) (workflow.Result, error) {
	switch a := action.(type) {
	case workflow.BatchDelete:
		res, err := s.deps.Upstream.BatchDeleteUsers(ctx, a.ActivityLevel, false, a.HardDelete)
		if err != nil {
			return workflow.Result{}, err
		}
		return workflow.Result{
			AffectedUserIDs: res.UserIDs,
			Detail:          fmt.Sprintf("deleted %d users", res.Deleted),
		}, nil
	case workflow.UserDelete:
		if _, err := s.deps.Upstream.DeleteUser(ctx, a.UserID, false, a.HardDelete); err != nil {
			return workflow.Result{}, err
		}
		return workflow.Result{AffectedUserIDs: []int64{a.UserID}, Detail: "deleted 1 user"}, nil
	case workflow.Ban:
		if err := s.deps.Upstream.BanUser(ctx, a.UserID, a.Reason, a.DisableTokens, a.Context); err != nil {
			return workflow.Result{}, err
		}
		return workflow.Result{AffectedUserIDs: []int64{a.UserID}, Detail: "banned"}, nil
	case workflow.Unban:
		if err := s.deps.Upstream.UnbanUser(ctx, a.UserID, a.Reason, a.EnableTokens, a.Context); err != nil {
			return workflow.Result{}, err
		}
		return workflow.Result{AffectedUserIDs: []int64{a.UserID}, Detail: "unbanned"}, nil
	case workflow.PurgeLogs:
		purged, err := s.deps.Upstream.PurgeScanAuditLogs(ctx)
		if err != nil {
			return workflow.Result{}, err
		}
		return workflow.Result{Detail: fmt.Sprintf("purged %d audit logs", purged)}, nil
	default:
		return workflow.Result{}, fmt.Errorf("unknown action kind %q", action.Kind())
	}
}

// applyActionResult patches the cached rows in place so the screen reflects
// the mutation immediately, then refetches the aggregate counters the row
// patch cannot recompute.
func (s *Session) applyActionResult(action workflow.Action, result workflow.Result) {
	switch action.(type) {
	case workflow.BatchDelete, workflow.UserDelete:
		s.lbCache.RemoveUsers(result.AffectedUserIDs)
	case workflow.Ban:
		s.lbCache.FlagUsers(result.AffectedUserIDs, "banned")
	case workflow.Unban:
		s.lbCache.FlagUsers(result.AffectedUserIDs, "active")
	}
	go s.refreshAggregates()
}

func (s *Session) recordJournal(ctx context.Context, action workflow.Action, result workflow.Result, execErr error) {
	if s.deps.Journal == nil || !s.deps.Journal.Enabled() {
		return
	}
	entry := journal.Entry{
		ID:       uuid.New(),
		Operator: s.operator,
		Action:   string(action.Kind()),
		Success:  execErr == nil,
	}
	if execErr != nil {
		entry.Error = execErr.Error()
	}
	entry.Detail = map[string]any{"message": action.Message()}
	if execErr == nil && result.Detail != "" {
		entry.Detail["result"] = result.Detail
	}
	switch a := action.(type) {
	case workflow.UserDelete:
		entry.TargetID = strconv.FormatInt(a.UserID, 10)
	case workflow.Ban:
		entry.TargetID = strconv.FormatInt(a.UserID, 10)
	case workflow.Unban:
		entry.TargetID = strconv.FormatInt(a.UserID, 10)
	case workflow.BatchDelete:
		entry.TargetID = a.ActivityLevel
	}
	if err := s.deps.Journal.Record(ctx, entry); err != nil {
		s.logger.Warn("journal write failed", "action", action.Kind(), "error", err)
	}
}
