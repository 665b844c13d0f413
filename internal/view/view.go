package view

import "strings"

// View identifies one sub-screen of the risk center. Exactly one is active
// per session at a time.
type View string

const (
	Leaderboards View = "leaderboards"
	IPMonitoring View = "ip_monitoring"
	BannedList   View = "banned_list"
	AuditLogs    View = "audit_logs"
	AIBan        View = "ai_ban"
)

// Default is the view resolved for unknown or empty addresses.
const Default = Leaderboards

var pathByView = map[View]string{
	Leaderboards: "/risk",
	IPMonitoring: "/risk/ip",
	BannedList:   "/risk/banned",
	AuditLogs:    "/risk/audit",
	AIBan:        "/risk/ai",
}

var viewByPath = map[string]View{
	"/risk":        Leaderboards,
	"/risk/ip":     IPMonitoring,
	"/risk/banned": BannedList,
	"/risk/audit":  AuditLogs,
	"/risk/ai":     AIBan,
}

// Hash addressing predates the hierarchical paths. Recognized once on initial
// load and rewritten in place to the canonical path.
var viewByLegacyHash = map[string]View{
	"risk":        Leaderboards,
	"risk-ip":     IPMonitoring,
	"risk-banned": BannedList,
	"risk-audit":  AuditLogs,
	"risk-ai":     AIBan,
}

// Valid reports whether v names a known view.
func Valid(v View) bool {
	_, ok := pathByView[v]
	return ok
}

// All lists every view in display order.
func All() []View {
	return []View{Leaderboards, IPMonitoring, BannedList, AuditLogs, AIBan}
}

// PathFor returns the canonical navigation path for a view.
func PathFor(v View) string {
	if p, ok := pathByView[v]; ok {
		return p
	}
	return pathByView[Default]
}

// Resolution is the outcome of resolving a navigation address.
type Resolution struct {
	View          View
	CanonicalPath string
	// Migrated is true when a legacy hash address was recognized; the caller
	// must rewrite history in place to CanonicalPath.
	Migrated bool
}

// Resolve maps a navigation address onto a view. The hierarchical path wins;
// a legacy hash address is honored only when the path does not resolve, and
// is flagged for a one-time silent rewrite. Unknown input falls back to the
// default view. Resolving is idempotent: feeding the returned canonical path
// back in yields the same resolution with Migrated false.
func Resolve(path, hash string) Resolution {
	if v, ok := viewByPath[normalizePath(path)]; ok {
		return Resolution{View: v, CanonicalPath: PathFor(v)}
	}
	if v, ok := viewByLegacyHash[normalizeHash(hash)]; ok {
		return Resolution{View: v, CanonicalPath: PathFor(v), Migrated: true}
	}
	return Resolution{View: Default, CanonicalPath: PathFor(Default)}
}

func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	return path
}

func normalizeHash(hash string) string {
	return strings.TrimPrefix(strings.TrimSpace(hash), "#")
}
