package approvals

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"

	"github.com/goliatone/go-approvals/middleware/jwtware"
)

// RouteAuthenticator builds the token and policy guards for routes
type RouteAuthenticator struct {
	tokenService TokenService
	contextKey   string
	tokenLookup  string
	Logger       Logger
	ErrorHandler fiber.ErrorHandler
	listeners    []ValidationListener
}

// NewHTTPAuthenticator returns guards backed by tokenService
func NewHTTPAuthenticator(tokenService TokenService, logger Logger) *RouteAuthenticator {
	logger = normalizeLogger(logger)
	return &RouteAuthenticator{
		tokenService: tokenService,
		contextKey:   DefaultContextKey,
		tokenLookup:  "header:" + fiber.HeaderAuthorization,
		Logger:       logger,
		ErrorHandler: NewErrorHandler(logger),
	}
}

// ProtectedRoute requires a valid token of subject, an empty subject accepts
// either kind. Extra lookups such as "query:token" are tried after the header.
func (a *RouteAuthenticator) ProtectedRoute(subject SubjectType, extraLookups ...string) fiber.Handler {
	var validator TokenValidator = TokenValidatorFunc(a.tokenService.Validate)
	if subject != "" {
		validator = SubjectValidator(a.tokenService, subject)
	}

	lookup := a.tokenLookup
	for _, l := range extraLookups {
		lookup += "," + l
	}

	cfg := jwtware.Config{
		ContextKey:      a.contextKey,
		TokenLookup:     lookup,
		TokenValidator:  MiddlewareValidator(validator),
		ErrorHandler:    a.MakeAuthErrorHandler(),
		ContextEnricher: ContextEnricherAdapter,
	}
	RegisterValidationListeners(&cfg, a.listeners...)

	return jwtware.New(cfg)
}

// WithValidationListeners runs listeners after every successful token check
func (a *RouteAuthenticator) WithValidationListeners(listeners ...ValidationListener) *RouteAuthenticator {
	a.listeners = append(a.listeners, listeners...)
	return a
}

// RequireOperation rejects requests whose claims do not satisfy op
func (a *RouteAuthenticator) RequireOperation(op Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := GetFiberClaims(c, a.contextKey)
		if !ok {
			return a.ErrorHandler(c, ErrUnauthenticated)
		}
		if err := AuthorizeOperation(claims, op); err != nil {
			return a.ErrorHandler(c, err)
		}
		return c.Next()
	}
}

// MakeAuthErrorHandler maps token failures into rich auth errors
func (a *RouteAuthenticator) MakeAuthErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var richErr *errors.Error

		switch {
		case errors.As(err, &richErr):
		case errors.Is(err, jwtware.ErrJWTMissingOrMalformed):
			richErr = ErrUnauthenticated
		case IsTokenExpiredError(err):
			richErr = ErrTokenExpired
		default:
			richErr = errors.Wrap(err, errors.CategoryAuth, "invalid authentication token").
				WithTextCode(TextCodeTokenMalformed).
				WithCode(errors.CodeUnauthorized)
		}

		a.Logger.Debug("auth rejected %s %s: %s", c.Method(), c.Path(), richErr.Message)
		return a.ErrorHandler(c, richErr)
	}
}

// NewErrorHandler renders every error as {message, textCode, details}
func NewErrorHandler(logger Logger) fiber.ErrorHandler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx, err error) error {
		var richErr *errors.Error
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &richErr):
		case errors.As(err, &fiberErr):
			richErr = errorForStatus(fiberErr.Code, fiberErr.Message)
		default:
			richErr = errors.Wrap(err, errors.CategoryInternal, "an unexpected server error occurred").
				WithCode(errors.CodeInternal)
		}

		status := HTTPStatus(richErr)
		if status >= fiber.StatusInternalServerError {
			logger.Error("request %s %s failed: %v details=%s", c.Method(), c.Path(), err, print.MaybePrettyJSON(richErr.Metadata))
		} else {
			logger.Debug("request %s %s rejected: %s (%s)", c.Method(), c.Path(), richErr.Message, richErr.TextCode)
		}

		body := fiber.Map{"message": richErr.Message}
		if richErr.TextCode != "" {
			body["textCode"] = richErr.TextCode
		}
		if len(richErr.Metadata) > 0 && status < fiber.StatusInternalServerError {
			body["details"] = richErr.Metadata
		}

		return c.Status(status).JSON(body)
	}
}

func errorForStatus(status int, message string) *errors.Error {
	var richErr *errors.Error
	switch status {
	case fiber.StatusUnauthorized:
		richErr = errors.New(message, errors.CategoryAuth)
	case fiber.StatusForbidden:
		richErr = errors.New(message, errors.CategoryAuthz)
	case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
		richErr = errors.New(message, errors.CategoryBadInput)
	case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
		richErr = errors.New(message, errors.CategoryNotFound)
	case fiber.StatusConflict:
		richErr = errors.New(message, errors.CategoryConflict)
	default:
		richErr = errors.New(message, errors.CategoryInternal)
	}
	return richErr.WithCode(status)
}

// RequestLogger writes one access log line per request
func RequestLogger(logger Logger) fiber.Handler {
	logger = normalizeLogger(logger)
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = HTTPStatus(err)
		}
		logger.Info("%s %s %d %s rid=%v",
			c.Method(),
			c.OriginalURL(),
			status,
			time.Since(start).Round(time.Microsecond),
			c.Locals(requestid.ConfigDefault.ContextKey),
		)
		return err
	}
}

// ServerOptions configures NewFiberApp
type ServerOptions struct {
	AllowedOrigins []string
	Logger         Logger
	AccessLogger   Logger
}

// NewFiberApp returns a fiber app with the JSON error handler, request ids,
// panic recovery, CORS and access logging installed.
func NewFiberApp(opts ServerOptions) *fiber.App {
	logger := normalizeLogger(opts.Logger)
	access := opts.AccessLogger
	if access == nil {
		access = logger
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-approvals",
		DisableStartupMessage: true,
		ErrorHandler:          NewErrorHandler(logger),
	})

	app.Use(requestid.New())
	app.Use(recover.New())

	origins := "*"
	if len(opts.AllowedOrigins) > 0 {
		origins = strings.Join(opts.AllowedOrigins, ",")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Use(RequestLogger(access))

	return app
}
