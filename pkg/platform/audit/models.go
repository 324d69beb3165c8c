// Package audit defines the audit event model and its category routing.
//
// Every compliance-relevant action in the service emits exactly one event.
// Events are classified into three categories with different guarantees:
// compliance events are written fail-closed on the request path, security
// events are buffered and flushed in the background, operations events are
// sampled. The outbox relay moves persisted events to Kafka, where the
// consumer materializes them into query tables.
package audit

import (
	"time"

	id "cubby/pkg/domain"
)

// EventCategory classifies audit events by their delivery guarantee.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: consent
	// changes, child profile lifecycle, erasures, compliance decisions.
	// Fail-closed, long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events for monitoring and forensics: auth
	// failures, lockouts, quota violations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	// Sampled, short retention.
	CategoryOperations EventCategory = "operations"
)

// Event is the transport-agnostic audit record. Stores and sinks fan out
// from this one shape.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	ParentID  id.ParentID
	ChildID   id.ChildID
	Subject   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
	// ActorID tracks who performed the action when it is not the parent in
	// ParentID (e.g. the retention sweeper).
	ActorID string
}

// AuditEvent names a single auditable action.
type AuditEvent string

const (
	// Parent account events
	EventParentRegistered   AuditEvent = "parent_registered"
	EventParentLoginFailed  AuditEvent = "parent_login_failed"
	EventParentTokenIssued  AuditEvent = "parent_token_issued"
	EventAuthLockoutStarted AuditEvent = "auth_lockout_triggered"

	// Child profile events
	EventChildRegistered AuditEvent = "child_registered"
	EventChildDeleted    AuditEvent = "child_deleted"

	// Consent ledger events
	EventConsentGranted AuditEvent = "consent_granted"
	EventConsentRevoked AuditEvent = "consent_revoked"

	// Compliance engine events
	EventDecisionMade     AuditEvent = "decision_made"
	EventPreviewEvaluated AuditEvent = "preview_evaluated"

	// Conversation events
	EventConversationStarted AuditEvent = "conversation_started"
	EventConversationErased  AuditEvent = "conversation_erased"
	EventRetentionPurged     AuditEvent = "retention_purged"

	// Usage limit events
	EventQuotaExceeded     AuditEvent = "child_quota_exceeded"
	EventRateLimitExceeded AuditEvent = "rate_limit_exceeded"
)

// eventCategories maps each audit event to its category and is the single
// source of truth for routing.
var eventCategories = map[AuditEvent]EventCategory{
	// Compliance: the legal trail. These must never be lost.
	EventChildRegistered:     CategoryCompliance,
	EventChildDeleted:        CategoryCompliance,
	EventConsentGranted:      CategoryCompliance,
	EventConsentRevoked:      CategoryCompliance,
	EventDecisionMade:        CategoryCompliance,
	EventConversationErased:  CategoryCompliance,
	EventRetentionPurged:     CategoryCompliance,

	// Security: feeds monitoring and alerting.
	EventParentLoginFailed:  CategorySecurity,
	EventAuthLockoutStarted: CategorySecurity,
	EventQuotaExceeded:      CategorySecurity,
	EventRateLimitExceeded:  CategorySecurity,

	// Operations: routine activity, sampled.
	EventParentRegistered:    CategoryOperations,
	EventParentTokenIssued:   CategoryOperations,
	EventPreviewEvaluated:    CategoryOperations,
	EventConversationStarted: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// -----------------------------------------------------------------------------
// Right-sized event types for the tri-publisher architecture
// -----------------------------------------------------------------------------

// ComplianceEvent captures regulatory-significant actions requiring
// guaranteed persistence. Use with the compliance publisher: if the write
// fails, the calling operation must fail.
type ComplianceEvent struct {
	Timestamp time.Time   // set automatically if zero
	ParentID  id.ParentID // parent responsible for the child (required)
	ChildID   id.ChildID  // child affected, when the action is child-scoped
	Subject   string      // human-readable subject identifier
	Action    string      // e.g. "consent_granted"
	Decision  string      // outcome, e.g. "allowed", "denied"
	Reason    string      // why, e.g. the engine's denial reason
	RequestID string      // correlation ID
	ActorID   string      // actor when not the parent (e.g. "retention-sweeper")
}

// Category returns CategoryCompliance (always).
func (e ComplianceEvent) Category() EventCategory { return CategoryCompliance }

// ToEvent converts to the shared Event type for storage.
func (e ComplianceEvent) ToEvent() Event {
	return Event{
		Category:  CategoryCompliance,
		Timestamp: e.Timestamp,
		ParentID:  e.ParentID,
		ChildID:   e.ChildID,
		Subject:   e.Subject,
		Action:    e.Action,
		Decision:  e.Decision,
		Reason:    e.Reason,
		RequestID: e.RequestID,
		ActorID:   e.ActorID,
	}
}

// Severity levels for security events.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SecurityEvent captures security-relevant actions. Emitted non-blocking
// through a bounded buffer; under pressure the oldest events are dropped.
type SecurityEvent struct {
	Timestamp time.Time
	Subject   string // entity involved (parent_id, IP, child_id)
	Action    string
	Reason    string
	IP        string
	Device    string
	RequestID string
	Severity  Severity
}

// Category returns CategorySecurity (always).
func (e SecurityEvent) Category() EventCategory { return CategorySecurity }

// ToEvent converts to the shared Event type for storage.
func (e SecurityEvent) ToEvent() Event {
	reason := e.Reason
	if e.IP != "" {
		reason += " ip=" + e.IP
	}
	if e.Device != "" {
		reason += " device=" + e.Device
	}
	return Event{
		Category:  CategorySecurity,
		Timestamp: e.Timestamp,
		Subject:   e.Subject,
		Action:    e.Action,
		Reason:    reason,
		RequestID: e.RequestID,
	}
}

// OpsEvent captures operational events with minimal overhead.
// Fire-and-forget with sampling.
type OpsEvent struct {
	Timestamp time.Time
	Subject   string
	Action    string
	RequestID string
}

// Category returns CategoryOperations (always).
func (e OpsEvent) Category() EventCategory { return CategoryOperations }

// ToEvent converts to the shared Event type for storage.
func (e OpsEvent) ToEvent() Event {
	return Event{
		Category:  CategoryOperations,
		Timestamp: e.Timestamp,
		Subject:   e.Subject,
		Action:    e.Action,
		RequestID: e.RequestID,
	}
}
