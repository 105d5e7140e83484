package domain

import "errors"

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("your requested Item is not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("your Item already exist")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("given Param is not valid")
	// ErrForbidden will throw if the actor is neither the owner nor an admin
	ErrForbidden = errors.New("you are not allowed to perform this action")
	// ErrUnauthorized will throw if no authenticated actor is present
	ErrUnauthorized = errors.New("user not authenticated")
	ErrCacheMiss    = errors.New("cache miss")
	// ErrCacheStale will throw if a cache fill lost against a newer invalidation
	ErrCacheStale = errors.New("cache entry invalidated during load")
)
