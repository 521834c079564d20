// Package audit keeps the persistent trail of security-relevant activity:
// lock and unlock attempts, operator commands, logins and device command
// results.
//
// Entries are written to the audit_logs table through Repository. Callers
// on hot paths go through Recorder, which queues entries and writes them
// serially from one goroutine so request and device handlers never wait on
// SQLite.
package audit
