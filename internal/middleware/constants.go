package middleware

// HTTP header constants.
const (
	HeaderContentType   = "Content-Type"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderAllowOrigin   = "Access-Control-Allow-Origin"
)

// ContentTypeTextPlain is used for gateway-generated error bodies.
const ContentTypeTextPlain = "text/plain; charset=utf-8"

const errInternalServerBody = "Internal server error"
