// Package errors provides the error handling solution for the encounter API.
//
// It provides:
//   - Structured errors with codes, messages, and metadata
//   - A closed code set mapped to HTTP statuses at the boundary
//   - Error context preservation through wrapping
//   - Validation error helpers
//   - Type-safe error checking
//
// # Basic Usage
//
// Creating errors:
//
//	err := errors.NotFound("encounter not found")
//	err := errors.InvalidArgumentf("invalid status: %q", status)
//
// Adding metadata:
//
//	err := errors.NotFound("encounter not found").
//	    WithMeta("encounter_id", encID).
//	    WithMeta("user_id", userID)
//
// Wrapping errors:
//
//	if err := repo.Get(ctx, input); err != nil {
//	    return errors.Wrap(err, "failed to get encounter")
//	}
//
// # Error Checking
//
// Type checking:
//
//	if errors.IsNotFound(err) {
//	    // Handle not found case
//	}
//
// Extracting information:
//
//	code := errors.GetCode(err)
//	status := code.HTTPStatus()
//
// # Validation Errors
//
// Using the validation builder:
//
//	vb := errors.NewValidationBuilder()
//	errors.ValidateRequired("name", input.Name, vb)
//	errors.ValidateMaxLength("name", input.Name, 100, vb)
//	if err := vb.Build(); err != nil {
//	    return err
//	}
//
// # Layer-Specific Guidelines
//
// Repository layer:
//   - Return domain-specific errors (NotFound, AlreadyExists, Aborted)
//   - Include relevant IDs in metadata
//   - Wrap driver errors with context
//
// Orchestrator layer:
//   - Validate inputs and return InvalidArgument errors
//   - Check preconditions and return FailedPrecondition errors
//   - Wrap repository errors with business context
//
// Handler layer:
//   - Map codes to HTTP statuses via Code.HTTPStatus
//   - Never branch on error message text
package errors
