// Package mocks holds gomock doubles for the portal's ports.
//
// Regenerate after interface changes with:
//
//	go generate ./internal/portal/mocks
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_client_mock.go github.com/aussiebroadwan/portal/internal/portal/service IdentityClient
