// Package authz verifies resource ownership before mutations.
package authz

import "github.com/critfumble/encounter-api/internal/errors"

// Authorize returns nil when callerID owns the resource and a permission
// denied error otherwise. It runs before any other precondition check so an
// unauthorized caller learns nothing else about the resource.
func Authorize(ownerID, callerID string) error {
	if callerID == "" {
		return errors.Unauthenticated("caller identity is required")
	}
	if ownerID != callerID {
		return errors.PermissionDenied("caller does not own this encounter")
	}
	return nil
}
