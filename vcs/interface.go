// Package vcs defines the local version-control boundary the side-effect
// applier and iteration driver use to manage branches, staging, and
// commits against the working tree.
package vcs

import "context"

// VersionControl is the opaque local-git boundary.
type VersionControl interface {
	Checkout(ctx context.Context, ref string) error
	CheckoutForce(ctx context.Context, ref string) error
	CreateBranch(ctx context.Context, name string) error
	BranchExists(ctx context.Context, name string) (bool, error)
	Add(ctx context.Context, paths []string) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context, remote, ref string) error
	Fetch(ctx context.Context, remote string) error
	Merge(ctx context.Context, ref string) error
	IsDirty(ctx context.Context) (bool, error)
	ActiveBranch(ctx context.Context) (string, error)
	Diff(ctx context.Context, target string) (string, error)
	CheckoutPR(ctx context.Context, id int) error
}
