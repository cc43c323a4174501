package repository

import "github.com/martijn/harvestd/internal/errors"

// ErrNotFound is returned by repositories when the requested record does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalidFilter marks listing filters the store cannot express
var ErrInvalidFilter = errors.New("invalid filter")
