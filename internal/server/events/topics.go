// Package events defines the event topics and payloads exchanged with the
// rest of the platform, plus the Redis pub/sub bus that carries them.
//
// Delivery is treated as at-least-once and unordered regardless of what the
// transport actually guarantees: every consumer handler must be idempotent
// and must not assume ordering between topics or across redelivery.
package events

// Inbound topics published by the identity service.
const (
	TopicUserCreated        = "user.created"
	TopicUserProfileUpdated = "user.profileUpdated"
	TopicUserDeactivated    = "user.deactivated"
	TopicUserReactivated    = "user.reactivated"
)

// Outbound topics published by this service.
const (
	TopicUserRegistered        = "user.registered"
	TopicUserLoggedIn          = "user.loggedIn"
	TopicTokenRefreshed        = "token.refreshed"
	TopicUserLoggedOut         = "user.loggedOut"
	TopicUserLoggedOutAll      = "user.loggedOutAll"
	TopicUserPasswordChanged   = "user.passwordChanged"
	TopicSessionsCleanedUp     = "auth.sessionsCleanedUp"
	TopicStatisticsGenerated   = "auth.statisticsGenerated"
	TopicPasswordExpiryWarning = "auth.passwordExpiryWarning"
	TopicUserStatusSync        = "auth.userStatusSync"
)
