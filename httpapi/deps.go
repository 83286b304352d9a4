package httpapi

import (
	"standards-gateway/auth"
	"standards-gateway/config"
	"standards-gateway/extract"
	"standards-gateway/fileio"
	"standards-gateway/jobs"
	"standards-gateway/store"
	"standards-gateway/upstream"
)

// Deps bundles every domain service a handler needs, following the
// teacher's api.Handlers shape (api/jwt.go) of a single struct carrying
// service dependencies rather than free package-level globals.
type Deps struct {
	Config    *config.Config
	Store     *store.Store
	Auth      *auth.Service
	Router    *upstream.Router
	Executor  *jobs.Executor
	Extractor *extract.Service
	Cache     *extract.Cache
	Paths     *fileio.Paths
	Graph     *store.GraphRepository
}

