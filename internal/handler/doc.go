// Package handler implements the HTTP API.
//
// # Endpoints
//
//	GET    /api/users                list users (?limit=&offset=)
//	POST   /api/users                register a user
//	GET    /api/users/{id}           fetch a user
//	PATCH  /api/users/{id}           change name and/or email
//	DELETE /api/users/{id}           delete a user
//	POST   /api/sessions             check email and password
//	GET    /api/organizations        list organizations (?owner=&limit=&offset=)
//	POST   /api/organizations        create an organization
//	GET    /api/organizations/{id}   fetch an organization
//	GET    /api/organizations/by-slug/{slug}
//	                                 fetch an organization by slug
//	DELETE /api/organizations/{id}   delete an organization
//	GET    /api/events               Server-Sent Events stream
//	GET    /healthz                  liveness plus database ping
//	GET    /metrics                  Prometheus metrics
//
// # Response Format
//
// Success responses carry DTOs. Errors use {error, details, fields} where
// fields lists the offending input fields for 400 and 409 responses.
package handler
