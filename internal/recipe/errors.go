package recipe

import "errors"

var (
	ErrValidation  = errors.New("invalid recipe")
	ErrEmptyRecipe = errors.New("empty recipe")
)
