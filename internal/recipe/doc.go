// Package recipe defines the declarative build recipe submitted by
// clients: a base image reference, a set of declared volume names, and
// an ordered list of steps.
//
// A step is a variant: it either performs an operation (a shell command
// or a host copy) or mutates the accumulated build state (environment,
// working directory, shell, volume mount). Field presence decides the
// variant; a step never carries more than one operation. Ordering within
// the list is significant and preserved end to end, since later steps
// depend on the environment and filesystem state left by earlier ones.
//
// Recipes are validated before compilation. Validation failures are
// static: they surface before any step executes and wrap [ErrValidation].
package recipe
