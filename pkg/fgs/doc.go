// Package fgs is the boundary to the FunctionGraph API.
//
// Client is the interface the reconcilers use. HTTPClient implements it over
// the v2 REST API with token authentication:
//
//	GET    /v2/{project}/fgs/functions/{urn}/config
//	POST   /v2/{project}/fgs/functions
//	PUT    /v2/{project}/fgs/functions/{urn}/code
//	PUT    /v2/{project}/fgs/functions/{urn}/config
//	DELETE /v2/{project}/fgs/functions/{urn}
//	GET    /v2/{project}/fgs/triggers/{urn}
//	POST   /v2/{project}/fgs/triggers/{urn}
//	PUT    /v2/{project}/fgs/triggers/{urn}/{type}/{id}
//	DELETE /v2/{project}/fgs/triggers/{urn}/{type}/{id}
//
// Every failure is an *APIError carrying the HTTP status and the platform
// error code. IsNotFound distinguishes a confirmed absence from other read
// failures. Reads may be retried with exponential backoff; mutations never are.
//
// Instrumented decorates any Client with one span and one set of metric
// observations per call. The fgstest package provides an in-memory Platform
// for tests.
package fgs
