package model

import "errors"

var (
	// ErrBlueprintNotFound indicates the referenced blueprint does not exist.
	ErrBlueprintNotFound = errors.New("blueprint not found")
	// ErrBlueprintNotActive is returned when starting an attempt on a draft blueprint.
	ErrBlueprintNotActive = errors.New("blueprint is not active")
	// ErrImmutableBlueprint is returned on writes to an activated blueprint.
	ErrImmutableBlueprint = errors.New("blueprint is active and immutable")
	// ErrItemNotFound indicates the referenced item is not part of the blueprint.
	ErrItemNotFound = errors.New("item not found in blueprint")
	// ErrAttemptNotFound indicates the referenced attempt does not exist.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrStaleAttempt is returned on any write to an already-submitted attempt.
	ErrStaleAttempt = errors.New("attempt already submitted")
	// ErrEvaluationNotFound indicates no evaluation exists for the subject.
	ErrEvaluationNotFound = errors.New("evaluation not found")
)
