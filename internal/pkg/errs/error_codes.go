package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the Content-Type header is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates a malformed JSON request body.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates the request body exceeded the server limit.
	ErrRequestEntityTooLarge = 1005

	// ErrRateLimitExceeded indicates the request rate limit was hit.
	ErrRateLimitExceeded = 1006
)

// 2xxx: Messaging and Content Errors
const (
	// ErrEmptyContent indicates a message with no text or image payload.
	// Nothing is persisted when this is returned.
	ErrEmptyContent = 2001

	// ErrMessageContentTooLong indicates message text above the size limit.
	ErrMessageContentTooLong = 2002

	// ErrFileSizeTooLarge indicates an image upload above the size limit.
	ErrFileSizeTooLarge = 2101

	// ErrFileTypeInvalid indicates an upload with a disallowed file type.
	ErrFileTypeInvalid = 2102

	// ErrFileStorageFailed indicates the object storage operation failed.
	ErrFileStorageFailed = 2103
)

// 3xxx: Identity and Session Errors
const (
	// ErrIdentityUnresolved indicates a realtime handshake whose session
	// could not be mapped to a known user. The connection is refused.
	ErrIdentityUnresolved = 3001

	// ErrUnauthorized indicates a request without a valid session.
	ErrUnauthorized = 3002

	// ErrInvalidUsername indicates a username failing format validation.
	ErrInvalidUsername = 3101

	// ErrInvalidPassword indicates a password failing length validation.
	ErrInvalidPassword = 3102

	// ErrUserAlreadyExists indicates a registration conflict on username.
	ErrUserAlreadyExists = 3103

	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = 3104

	// ErrUserNotFound indicates a lookup for a username that does not exist.
	ErrUserNotFound = 3105
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified internal error.
	ErrUnknown = 5000

	// ErrPersistenceFailure indicates a failed read or write against the
	// message store. Surfaced only to the caller that triggered it.
	ErrPersistenceFailure = 5001
)
