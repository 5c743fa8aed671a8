package apierror

// Error type URIs following the urn:leadflow:error:* pattern.
// These are used as the "type" field in RFC 9457 Problem Details.
const (
	// TypeValidation indicates request validation failed (400)
	TypeValidation = "urn:leadflow:error:validation"

	// TypeNotFound indicates the requested resource was not found (404)
	TypeNotFound = "urn:leadflow:error:not_found"

	// TypeConflict indicates a resource conflict (409)
	TypeConflict = "urn:leadflow:error:conflict"

	// TypeStageRule indicates a lead does not satisfy a stage entry or exit rule (422)
	TypeStageRule = "urn:leadflow:error:stage_rule"

	// TypeRateLimit indicates too many requests (429)
	TypeRateLimit = "urn:leadflow:error:rate_limit"

	// TypeUnauthorized indicates missing or invalid authentication (401)
	TypeUnauthorized = "urn:leadflow:error:unauthorized"

	// TypeForbidden indicates insufficient permissions (403)
	TypeForbidden = "urn:leadflow:error:forbidden"

	// TypePendingApproval indicates the account exists but has not been approved (403)
	TypePendingApproval = "urn:leadflow:error:pending_approval"

	// TypeInternal indicates an unexpected server error (500)
	TypeInternal = "urn:leadflow:error:internal"

	// TypeUnavailable indicates an optional backend is switched off or down (503)
	TypeUnavailable = "urn:leadflow:error:unavailable"

	// TypeBadRequest indicates a malformed or invalid request (400)
	TypeBadRequest = "urn:leadflow:error:bad_request"
)

// Titles for each error type - human-readable summaries
const (
	TitleValidation      = "Validation Error"
	TitleNotFound        = "Resource Not Found"
	TitleConflict        = "Resource Conflict"
	TitleStageRule       = "Stage Rule Violation"
	TitleRateLimit       = "Rate Limit Exceeded"
	TitleUnauthorized    = "Authentication Required"
	TitleForbidden       = "Permission Denied"
	TitlePendingApproval = "Approval Pending"
	TitleInternal        = "Internal Server Error"
	TitleUnavailable     = "Service Unavailable"
	TitleBadRequest      = "Bad Request"
)
