// Package mocks holds gomock doubles for the service and provider interfaces.
//
// Regenerate after an interface change with:
//
//	go generate ./internal/mocks
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=account_session_mock.go github.com/luxemuse/luxe-muse-backend/internal/core AccountSession
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=image_generator_mock.go github.com/luxemuse/luxe-muse-backend/internal/core ImageGenerator
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=event_publisher_mock.go github.com/luxemuse/luxe-muse-backend/internal/core EventPublisher
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=profile_repository_mock.go github.com/luxemuse/luxe-muse-backend/internal/db ProfileRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_provider_mock.go -mock_names=Provider=MockIdentityProvider github.com/luxemuse/luxe-muse-backend/internal/identity Provider
