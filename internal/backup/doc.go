// Package backup snapshots the installed binary before mutation and restores
// it when a downstream install step fails. The live target is never left
// without a runnable binary except when both the copy and the restore fail,
// which callers report as a fatal dual failure.
package backup
