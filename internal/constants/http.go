package constants

const (
	APIFieldRequestID = "request_id"
)

const (
	ContentTypeJSON = "application/json"
)

const (
	HeaderAccept                    = "Accept"
	HeaderAuthorization             = "Authorization"
	HeaderContentDigest             = "Content-Digest"
	HeaderContentLength             = "Content-Length"
	HeaderContentType               = "Content-Type"
	HeaderOrigin                    = "Origin"
	HeaderAccessControlAllowHeaders = "Access-Control-Allow-Headers"
	HeaderXAPIKey                   = "X-API-Key" // #nosec G101
	HeaderXRequestID                = "X-Request-ID"
	HeaderXRequestedWith            = "X-Requested-With"
)
